package client

import (
	"context"

	"github.com/hunyxv/zmux"
	pkgerr "github.com/pkg/errors"
)

// Report 一次分发的结果统计
type Report struct {
	Succeeded int
	Failed    int
	Unknown   []error // *zmux.UnknownResponseIDError，仅诊断用
	Missing   []int   // 没有收到单个响应的 id
	Malformed error   // *zmux.MalformedResponseError
}

// Delivered 已送达的结果总数
func (r *Report) Delivered() int {
	return r.Succeeded + r.Failed
}

// Demultiplexer 将复合响应拆分并送达各自的回调
type Demultiplexer struct {
	logger zmux.Logger
}

func NewDemultiplexer(logger zmux.Logger) *Demultiplexer {
	if logger == nil {
		logger = zmux.NewLogger()
	}
	return &Demultiplexer{logger: logger}
}

// Demux 解析复合响应并逐个分发；之后仍未解析的 id 收到 *zmux.MissingResponseError
func (d *Demultiplexer) Demux(payload []byte, table *CorrelationTable) *Report {
	content, err := zmux.DecodeResponseContent(payload)
	if err != nil {
		return d.Malformed(table, err)
	}

	report := &Report{}
	for i := range content.Responses {
		d.dispatch(&content.Responses[i], table, report)
	}
	d.drain(table, report, missingResponse)
	return report
}

// Malformed 复合响应无法解析，等同于对空响应集分发
func (d *Demultiplexer) Malformed(table *CorrelationTable, cause error) *Report {
	report := &Report{
		Malformed: &zmux.MalformedResponseError{Err: cause},
	}
	d.logger.Errorf("zmux: demux: %v", report.Malformed)
	d.drain(table, report, missingResponse)
	return report
}

// Abort 响应到达前请求被取消、超时或传输失败，所有未解析的回调收到失败结果
func (d *Demultiplexer) Abort(table *CorrelationTable, cause error) *Report {
	report := &Report{}
	d.drain(table, report, func(id int) error { return abortError(id, cause) })
	return report
}

func (d *Demultiplexer) dispatch(entry *zmux.IndividualResponse, table *CorrelationTable, report *Report) {
	h, err := table.Resolve(entry.ID)
	if err != nil {
		var dd *zmux.DoubleDispatchError
		if pkgerr.As(err, &dd) {
			d.logger.Errorf("zmux: demux: %v", err)
			panic(err)
		}
		d.logger.Warnf("zmux: demux: %v", err)
		report.Unknown = append(report.Unknown, err)
		return
	}

	if !zmux.IsSuccessStatus(entry.Status) {
		errResp := entry.Error
		if errResp == nil {
			errResp = zmux.NewStatusError(entry.Status)
		}
		d.fail(h, entry.ID, &zmux.RemoteError{ID: entry.ID, Status: entry.Status, Response: errResp}, report)
		return
	}

	var decodeErr error
	if d.guard(entry.ID, func() { decodeErr = h.OnSuccess(entry) }) {
		report.Failed++
		return
	}
	if decodeErr != nil {
		d.fail(h, entry.ID, &zmux.DecodeError{ID: entry.ID, Err: decodeErr}, report)
		return
	}
	report.Succeeded++
}

func (d *Demultiplexer) drain(table *CorrelationTable, report *Report, cause func(id int) error) {
	for _, id := range table.Unresolved() {
		h, err := table.Resolve(id)
		if err != nil {
			continue
		}
		report.Missing = append(report.Missing, id)
		d.fail(h, id, cause(id), report)
	}
}

func (d *Demultiplexer) fail(h Handler, id int, err error, report *Report) {
	d.guard(id, func() { h.OnFailure(err) })
	report.Failed++
}

// guard 回调中的 panic 不影响其他回调的送达
func (d *Demultiplexer) guard(id int, f func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			d.logger.Errorf("zmux: handler of request %d panicked: %v", id, r)
		}
	}()
	f()
	return false
}

func missingResponse(id int) error {
	return &zmux.MissingResponseError{ID: id}
}

func abortError(id int, cause error) error {
	switch {
	case pkgerr.Is(cause, context.DeadlineExceeded):
		return &zmux.TimeoutError{ID: id, Cause: cause}
	case pkgerr.Is(cause, context.Canceled):
		return &zmux.RequestCancelledError{ID: id, Cause: cause}
	default:
		return &zmux.TransportError{ID: id, Err: cause}
	}
}
