package client

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/hunyxv/zmux"
)

func TestAdaptDecodesEntity(t *testing.T) {
	c := qt.New(t)

	var got *Response[account]
	h := Adapt(func(resp *Response[account], err error) {
		c.Check(err, qt.IsNil)
		got = resp
	})
	resp := okEntity(3, &account{ID: 3, Owner: "dave", Balance: 12})
	c.Assert(h.OnSuccess(&resp), qt.IsNil)
	c.Assert(got.ID, qt.Equals, 3)
	c.Assert(got.Entity, qt.DeepEquals, account{ID: 3, Owner: "dave", Balance: 12})
}

func TestAdaptEmptyBody(t *testing.T) {
	c := qt.New(t)

	var got *Response[*account]
	h := Adapt(func(resp *Response[*account], err error) { got = resp })
	c.Assert(h.OnSuccess(&zmux.IndividualResponse{ID: 0, Status: 204}), qt.IsNil)
	c.Assert(got.Status, qt.Equals, 204)
	c.Assert(got.Entity, qt.IsNil)
}

func TestAdaptContentType(t *testing.T) {
	c := qt.New(t)

	var called bool
	h := Adapt(func(resp *Response[string], err error) { called = true })

	resp := okEntity(0, "x")
	resp.Headers.Set("Content-Type", "application/json; charset=utf-8")
	c.Assert(h.OnSuccess(&resp), qt.ErrorIs, zmux.ErrUnsupportedContentType)
	c.Assert(called, qt.IsFalse)

	resp.Headers.Set("Content-Type", "application/msgpack; charset=binary")
	c.Assert(h.OnSuccess(&resp), qt.IsNil)
	c.Assert(called, qt.IsTrue)
}

func TestFuture(t *testing.T) {
	c := qt.New(t)

	f := NewFuture[account]()
	go func() {
		resp := okEntity(0, &account{ID: 5})
		f.Handler().OnSuccess(&resp)
		// 只有第一次结果生效
		f.Handler().OnFailure(zmux.ErrTransport)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := f.Get(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Entity.ID, qt.Equals, 5)

	<-f.Done()
	resp, err = f.Get(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Entity.ID, qt.Equals, 5)
}

func TestFutureGetCancelled(t *testing.T) {
	c := qt.New(t)

	f := NewFuture[string]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Get(ctx)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}
