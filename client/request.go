package client

import (
	"sync/atomic"

	"github.com/hunyxv/zmux"
)

// MultiplexedRequest Build 产出的不可变复合请求
type MultiplexedRequest struct {
	id      string
	mode    Mode
	content zmux.MultiplexedRequestContent
	payload []byte
	table   *CorrelationTable
	sent    int32
}

// ID 复合请求 id，作为信封的 MESSAGEID
func (r *MultiplexedRequest) ID() string { return r.id }

func (r *MultiplexedRequest) Mode() Mode { return r.mode }

// Len 包含的单个请求数
func (r *MultiplexedRequest) Len() int { return len(r.content.Requests) }

// Content 复合请求内容的拷贝
func (r *MultiplexedRequest) Content() *zmux.MultiplexedRequestContent {
	c := &zmux.MultiplexedRequestContent{
		Requests: make([]zmux.IndividualRequest, len(r.content.Requests)),
	}
	for i, ir := range r.content.Requests {
		c.Requests[i] = ir.Clone()
	}
	return c
}

// Payload 编码后的复合请求（拷贝）
func (r *MultiplexedRequest) Payload() []byte {
	return append([]byte(nil), r.payload...)
}

// Table 回调关联表
func (r *MultiplexedRequest) Table() *CorrelationTable { return r.table }

// markSent 每个复合请求只能发送一次
func (r *MultiplexedRequest) markSent() bool {
	return atomic.CompareAndSwapInt32(&r.sent, 0, 1)
}
