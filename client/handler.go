package client

import (
	"context"
	"mime"
	"sync"

	"github.com/hunyxv/zmux"
	pkgerr "github.com/pkg/errors"
)

// Handler 单个请求的完成回调
//
//	OnSuccess 返回非 nil error 表示 body 无法解码、结果没有送达，
//	此时 Demultiplexer 会以 *zmux.DecodeError 调用 OnFailure。
type Handler interface {
	OnSuccess(resp *zmux.IndividualResponse) error
	OnFailure(err error)
}

var _ Handler = HandlerFuncs{}

// HandlerFuncs 用两个函数实现 Handler
type HandlerFuncs struct {
	Success func(resp *zmux.IndividualResponse) error
	Failure func(err error)
}

func (h HandlerFuncs) OnSuccess(resp *zmux.IndividualResponse) error {
	if h.Success == nil {
		return nil
	}
	return h.Success(resp)
}

func (h HandlerFuncs) OnFailure(err error) {
	if h.Failure != nil {
		h.Failure(err)
	}
}

// Response 解码后的单个响应
type Response[T any] struct {
	ID      int
	Status  int
	Headers zmux.Header
	Entity  T
}

type typedHandler[T any] struct {
	fn func(*Response[T], error)
}

// Adapt 将调用方期望类型 T 的回调适配为 Handler；
// 成功时 body 以 msgpack 解码到 T，空 body 得到 T 的零值。
func Adapt[T any](fn func(resp *Response[T], err error)) Handler {
	return &typedHandler[T]{fn: fn}
}

func (h *typedHandler[T]) OnSuccess(resp *zmux.IndividualResponse) error {
	if ct := resp.Headers.Get("Content-Type"); ct != "" && !isMsgpack(ct) {
		return pkgerr.WithMessagef(zmux.ErrUnsupportedContentType, "content type %q", ct)
	}

	r := &Response[T]{
		ID:      resp.ID,
		Status:  resp.Status,
		Headers: resp.Headers,
	}
	if len(resp.Body) > 0 {
		if err := zmux.DecodeEntity(resp.Body, &r.Entity); err != nil {
			return err
		}
	}
	h.fn(r, nil)
	return nil
}

func (h *typedHandler[T]) OnFailure(err error) {
	h.fn(nil, err)
}

func isMsgpack(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case zmux.ContentType, "application/msgpack", "application/vnd.msgpack":
		return true
	}
	return false
}

// Future 以阻塞方式等待单个请求的结果
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	resp *Response[T]
	err  error
}

func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Handler 提交请求时使用的回调
func (f *Future[T]) Handler() Handler {
	return Adapt(f.complete)
}

func (f *Future[T]) complete(resp *Response[T], err error) {
	f.once.Do(func() {
		f.resp, f.err = resp, err
		close(f.done)
	})
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Get 等待结果；ctx 结束时返回 ctx.Err()
func (f *Future[T]) Get(ctx context.Context) (*Response[T], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.resp, f.err
	}
}
