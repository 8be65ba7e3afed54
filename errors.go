package zmux

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// 组合阶段（同步、致命）
	ErrEmptyComposition  = errors.New("zmux: multiplexed request must contain at least one request")
	ErrClosedComposition = errors.New("zmux: composer is closed")
	ErrTooManyRequests   = errors.New("zmux: too many requests in one multiplexed request")
	ErrDependencyCycle   = errors.New("zmux: dependency cycle between individual requests")
	ErrNilRequest        = errors.New("zmux: nil request")
	ErrNilHandler        = errors.New("zmux: nil handler")

	// correlation table
	ErrTableFrozen      = errors.New("zmux: correlation table is frozen")
	ErrDuplicateBinding = errors.New("zmux: id is already bound")

	ErrAlreadySent            = errors.New("zmux: multiplexed request has already been sent")
	ErrUnsupportedContentType = errors.New("zmux: unsupported content type")
	ErrInvalidCookie          = errors.New("zmux: invalid cookie")
	ErrEmptyPayload           = errors.New("zmux: pack: empty payload")
	ErrNoMessageID            = errors.New("zmux: pack: no messageid")

	// 以下哨兵用于 errors.Is 匹配对应的结构化错误
	ErrMissingResponse   = errors.New("zmux: missing individual response")
	ErrUnknownResponseID = errors.New("zmux: unknown individual response id")
	ErrDoubleDispatch    = errors.New("zmux: individual response dispatched twice")
	ErrDecode            = errors.New("zmux: individual response decode failed")
	ErrRemote            = errors.New("zmux: individual request failed")
	ErrMalformedResponse = errors.New("zmux: malformed multiplexed response")
	ErrRequestCancelled  = errors.New("zmux: multiplexed request cancelled")
	ErrTimeout           = errors.New("zmux: multiplexed request timed out")
	ErrTransport         = errors.New("zmux: transport failed")
)

// MissingResponseError 复合响应中缺少该 id 的响应
type MissingResponseError struct {
	ID int
}

func (e *MissingResponseError) Error() string {
	return fmt.Sprintf("zmux: no response for individual request %d", e.ID)
}

func (e *MissingResponseError) Is(target error) bool { return target == ErrMissingResponse }

// UnknownResponseIDError 响应 id 没有对应的回调，仅用于诊断
type UnknownResponseIDError struct {
	ID int
}

func (e *UnknownResponseIDError) Error() string {
	return fmt.Sprintf("zmux: response id %d has no bound handler", e.ID)
}

func (e *UnknownResponseIDError) Is(target error) bool { return target == ErrUnknownResponseID }

// DoubleDispatchError 同一个 id 被解析了两次，说明关联表或远端协议已损坏
type DoubleDispatchError struct {
	ID int
}

func (e *DoubleDispatchError) Error() string {
	return fmt.Sprintf("zmux: handler for individual request %d already received its outcome", e.ID)
}

func (e *DoubleDispatchError) Is(target error) bool { return target == ErrDoubleDispatch }

// DecodeError 单个响应体无法解码
type DecodeError struct {
	ID  int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("zmux: decode response %d: %v", e.ID, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// RemoteError 远端报告的单个请求失败
type RemoteError struct {
	ID       int
	Status   int
	Response *ErrorResponse
}

func (e *RemoteError) Error() string {
	if e.Response != nil {
		return fmt.Sprintf("zmux: request %d failed with status %d: %s", e.ID, e.Status, e.Response.Message)
	}
	return fmt.Sprintf("zmux: request %d failed with status %d", e.ID, e.Status)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

func (e *RemoteError) Unwrap() error {
	if e.Response == nil {
		return nil
	}
	return e.Response
}

// MalformedResponseError 复合响应无法解析
type MalformedResponseError struct {
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("zmux: malformed multiplexed response: %v", e.Err)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// RequestCancelledError 响应到达前复合请求被取消
type RequestCancelledError struct {
	ID    int
	Cause error
}

func (e *RequestCancelledError) Error() string {
	return fmt.Sprintf("zmux: request %d cancelled: %v", e.ID, e.Cause)
}

func (e *RequestCancelledError) Is(target error) bool { return target == ErrRequestCancelled }

func (e *RequestCancelledError) Unwrap() error { return e.Cause }

// TimeoutError 响应到达前复合请求超时
type TimeoutError struct {
	ID    int
	Cause error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("zmux: request %d timed out: %v", e.ID, e.Cause)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Cause }

// TransportError 传输层失败，复合请求没有得到任何响应
type TransportError struct {
	ID  int
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("zmux: request %d not delivered: %v", e.ID, e.Err)
}

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func (e *TransportError) Unwrap() error { return e.Err }
