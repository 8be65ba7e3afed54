package zmux

import (
	"net/http"
	"net/url"
	"strings"
)

// Request 调用方提交的单个逻辑请求
type Request struct {
	Method  string
	Path    string // 相对于固定 base 的资源路径
	Query   url.Values
	Headers Header
	Cookies []*http.Cookie
	Entity  any // 请求实体，无 body 的方法忽略
}

func newRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Headers: make(Header),
	}
}

// NewGetRequest GET 资源
func NewGetRequest(path string) *Request {
	return newRequest(http.MethodGet, path)
}

// NewCreateRequest POST 新建资源
func NewCreateRequest(path string, entity any) *Request {
	r := newRequest(http.MethodPost, path)
	r.Entity = entity
	return r
}

// NewUpdateRequest PUT 更新资源
func NewUpdateRequest(path string, entity any) *Request {
	r := newRequest(http.MethodPut, path)
	r.Entity = entity
	return r
}

// NewPartialUpdateRequest PATCH 部分更新资源
func NewPartialUpdateRequest(path string, patch any) *Request {
	r := newRequest(http.MethodPatch, path)
	r.Entity = patch
	return r
}

// NewDeleteRequest DELETE 资源
func NewDeleteRequest(path string) *Request {
	return newRequest(http.MethodDelete, path)
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(Header)
	}
	r.Headers.Set(key, value)
	return r
}

func (r *Request) AddHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(Header)
	}
	r.Headers.Add(key, value)
	return r
}

func (r *Request) SetQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = make(url.Values)
	}
	r.Query.Set(key, value)
	return r
}

func (r *Request) AddCookie(c *http.Cookie) *Request {
	r.Cookies = append(r.Cookies, c)
	return r
}

// RelativeURL path + query，query 按 key 排序
func (r *Request) RelativeURL() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	sep := "?"
	if strings.Contains(r.Path, "?") {
		sep = "&"
	}
	return r.Path + sep + r.Query.Encode()
}

// HasBody 该请求的方法是否携带 body
func (r *Request) HasBody() bool {
	return methodHasBody(r.Method)
}

func methodHasBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
