package zmux

import (
	"bytes"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"
)

type user struct {
	Name string `msgpack:"name"`
	Age  int    `msgpack:"age"`
}

func TestNewIndividualRequestWithBody(t *testing.T) {
	c := qt.New(t)

	r := NewCreateRequest("/users", &user{Name: "alice", Age: 30}).
		SetHeader("content-type", ContentType).
		AddHeader("Accept", "a").
		AddHeader("Accept", "b").
		AddCookie(&http.Cookie{Name: "a", Value: "1"}).
		AddCookie(&http.Cookie{Name: "b", Value: "2"})

	ir, err := NewIndividualRequest(3, r, []int{4})
	c.Assert(err, qt.IsNil)
	c.Assert(ir.ID, qt.Equals, 3)
	c.Assert(ir.Method, qt.Equals, http.MethodPost)
	c.Assert(ir.RelativeURL, qt.Equals, "/users")
	c.Assert(ir.Cookies, qt.Equals, "a=1; b=2")
	c.Assert(ir.Headers.Values("Accept"), qt.DeepEquals, []string{"a", "b"})
	c.Assert(ir.Headers.Get("Content-Type"), qt.Equals, ContentType)
	c.Assert(ir.DependentRequestIDs, qt.DeepEquals, []int{4})

	var got user
	c.Assert(DecodeEntity(ir.Body, &got), qt.IsNil)
	c.Assert(got, qt.DeepEquals, user{Name: "alice", Age: 30})

	// 请求头是拷贝
	r.SetHeader("Accept", "c")
	c.Assert(ir.Headers.Values("Accept"), qt.DeepEquals, []string{"a", "b"})
}

func TestNewIndividualRequestBodiless(t *testing.T) {
	c := qt.New(t)

	for _, r := range []*Request{
		NewGetRequest("/users/1"),
		NewDeleteRequest("/users/1"),
		{Method: "head", Path: "/users/1"},
		{Method: http.MethodOptions, Path: "/users"},
	} {
		r.Entity = &user{Name: "ignored"}
		ir, err := NewIndividualRequest(0, r, nil)
		c.Assert(err, qt.IsNil)
		c.Assert(ir.Body, qt.HasLen, 0, qt.Commentf("method %s", r.Method))
		c.Assert(ir.Cookies, qt.Equals, "")
		c.Assert(ir.DependentRequestIDs, qt.Not(qt.IsNil))
	}
}

func TestNewIndividualRequestNil(t *testing.T) {
	c := qt.New(t)

	_, err := NewIndividualRequest(0, nil, nil)
	c.Assert(err, qt.ErrorIs, ErrNilRequest)
}

func TestRelativeURL(t *testing.T) {
	c := qt.New(t)

	r := NewGetRequest("/users").SetQuery("sort", "name").SetQuery("limit", "10")
	c.Assert(r.RelativeURL(), qt.Equals, "/users?limit=10&sort=name")

	r = NewGetRequest("/users?active=true").SetQuery("limit", "10")
	c.Assert(r.RelativeURL(), qt.Equals, "/users?active=true&limit=10")
}

func TestRequestContentDeterministic(t *testing.T) {
	c := qt.New(t)

	build := func() *MultiplexedRequestContent {
		var content MultiplexedRequestContent
		for i, r := range []*Request{
			NewCreateRequest("/users", map[string]any{"name": "bob", "age": 20, "tags": []string{"x"}}).
				SetHeader("X-B", "2").SetHeader("X-A", "1"),
			NewGetRequest("/users/1"),
		} {
			ir, err := NewIndividualRequest(i, r, nil)
			c.Assert(err, qt.IsNil)
			content.Requests = append(content.Requests, ir)
		}
		return &content
	}

	first, err := EncodeRequestContent(build())
	c.Assert(err, qt.IsNil)
	for i := 0; i < 10; i++ {
		again, err := EncodeRequestContent(build())
		c.Assert(err, qt.IsNil)
		c.Assert(bytes.Equal(first, again), qt.IsTrue)
	}

	decoded, err := DecodeRequestContent(first)
	c.Assert(err, qt.IsNil)
	c.Assert(decoded.Requests, qt.HasLen, 2)
	c.Assert(decoded.Requests[0].Method, qt.Equals, http.MethodPost)
	c.Assert(decoded.Requests[1].RelativeURL, qt.Equals, "/users/1")
	c.Assert(decoded.Requests[1].Body, qt.HasLen, 0)
}

func TestResponseContentRoundTrip(t *testing.T) {
	c := qt.New(t)

	body, err := EncodeEntity(&user{Name: "carol", Age: 41})
	c.Assert(err, qt.IsNil)
	in := &MultiplexedResponseContent{Responses: []IndividualResponse{
		{ID: 1, Status: http.StatusOK, Headers: Header{"Content-Type": {ContentType}}, Body: body},
		{ID: 0, Status: http.StatusNotFound, Error: &ErrorResponse{Status: 404, Code: "user.not_found", Message: "no such user"}},
	}}
	b, err := EncodeResponseContent(in)
	c.Assert(err, qt.IsNil)

	out, err := DecodeResponseContent(b)
	c.Assert(err, qt.IsNil)
	c.Assert(out.Responses, qt.HasLen, 2)
	c.Assert(out.Responses[0].Headers.Get("content-type"), qt.Equals, ContentType)
	var u user
	c.Assert(DecodeEntity(out.Responses[0].Body, &u), qt.IsNil)
	c.Assert(u.Name, qt.Equals, "carol")
	c.Assert(out.Responses[1].Error, qt.DeepEquals, in.Responses[1].Error)
}

func TestDecodeContentErrors(t *testing.T) {
	c := qt.New(t)

	_, err := DecodeResponseContent(nil)
	c.Assert(err, qt.ErrorIs, ErrEmptyPayload)
	_, err = DecodeRequestContent(nil)
	c.Assert(err, qt.ErrorIs, ErrEmptyPayload)
	_, err = DecodeResponseContent([]byte("not msgpack at all"))
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestIsSuccessStatus(t *testing.T) {
	c := qt.New(t)

	for status, ok := range map[int]bool{
		199: false, 200: true, 201: true, 204: true, 299: true,
		300: false, 400: false, 404: false, 500: false,
	} {
		c.Assert(IsSuccessStatus(status), qt.Equals, ok, qt.Commentf("status %d", status))
	}
}

func TestNewStatusError(t *testing.T) {
	c := qt.New(t)

	c.Assert(NewStatusError(404).Message, qt.Equals, "Not Found")
	c.Assert(NewStatusError(599).Message, qt.Equals, "unknown status")
}

func TestNewIndividualRequestInvalidCookie(t *testing.T) {
	c := qt.New(t)

	r := NewGetRequest("/users/1").
		AddCookie(&http.Cookie{Name: "session", Value: "s1"}).
		AddCookie(&http.Cookie{Name: "a", Value: "x;y"})
	_, err := NewIndividualRequest(2, r, nil)
	c.Assert(err, qt.ErrorIs, ErrInvalidCookie)
	c.Assert(err, qt.ErrorMatches, `zmux: request 2: cookie 1 \("a"\): .*`)
}
