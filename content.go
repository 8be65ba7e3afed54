package zmux

import (
	"fmt"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"
)

// IndividualRequest 复合请求中单个请求的线上表示
type IndividualRequest struct {
	ID                  int                `msgpack:"id"`
	Method              string             `msgpack:"method"`
	RelativeURL         string             `msgpack:"relativeUrl"`
	Headers             Header             `msgpack:"headers"`
	Cookies             string             `msgpack:"cookies,omitempty"`
	Body                msgpack.RawMessage `msgpack:"body,omitempty"`
	DependentRequestIDs []int              `msgpack:"dependentRequestIds"`
}

// Clone 深拷贝
func (r IndividualRequest) Clone() IndividualRequest {
	c := r
	c.Headers = r.Headers.Clone()
	if r.Body != nil {
		c.Body = append(msgpack.RawMessage(nil), r.Body...)
	}
	c.DependentRequestIDs = append(make([]int, 0, len(r.DependentRequestIDs)), r.DependentRequestIDs...)
	return c
}

// MultiplexedRequestContent 复合请求载荷，按 id 排序
type MultiplexedRequestContent struct {
	Requests []IndividualRequest `msgpack:"requests"`
}

// ErrorResponse 远端返回的结构化错误
type ErrorResponse struct {
	Status  int    `msgpack:"status"`
	Code    string `msgpack:"code,omitempty"`
	Type    string `msgpack:"exceptionClass,omitempty"`
	Message string `msgpack:"message"`
}

func (e *ErrorResponse) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// NewStatusError 远端没有给出结构化错误时，由状态码合成
func NewStatusError(status int) *ErrorResponse {
	msg := http.StatusText(status)
	if msg == "" {
		msg = "unknown status"
	}
	return &ErrorResponse{Status: status, Message: msg}
}

// IndividualResponse 复合响应中单个请求的结果
type IndividualResponse struct {
	ID      int                `msgpack:"id"`
	Status  int                `msgpack:"status"`
	Headers Header             `msgpack:"headers,omitempty"`
	Body    msgpack.RawMessage `msgpack:"body,omitempty"`
	Error   *ErrorResponse     `msgpack:"error,omitempty"`
}

// MultiplexedResponseContent 复合响应载荷，顺序无意义
type MultiplexedResponseContent struct {
	Responses []IndividualResponse `msgpack:"responses"`
}

// IsSuccessStatus 2xx 视为成功，其余均为失败
func IsSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
