package client

import (
	"context"
	"net/http"
	"sync"

	"github.com/hunyxv/zmux"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type account struct {
	ID      int    `msgpack:"id"`
	Owner   string `msgpack:"owner"`
	Balance int64  `msgpack:"balance"`
}

// executor 模拟远端：按依赖顺序执行单个请求并返回复合响应
type executor struct {
	handle func(ir zmux.IndividualRequest) zmux.IndividualResponse

	mutex    sync.Mutex
	received []*zmux.Pack
	order    []int
}

func newExecutor(handle func(ir zmux.IndividualRequest) zmux.IndividualResponse) *executor {
	return &executor{handle: handle}
}

func (e *executor) RoundTrip(ctx context.Context, p *zmux.Pack) (*zmux.Pack, error) {
	e.mutex.Lock()
	e.received = append(e.received, p)
	e.mutex.Unlock()

	payload, err := zmux.DecodePayload(p)
	if err != nil {
		return zmux.NewErrorPack(p, err), nil
	}
	content, err := zmux.DecodeRequestContent(payload)
	if err != nil {
		return zmux.NewErrorPack(p, err), nil
	}

	var resp zmux.MultiplexedResponseContent
	for _, id := range executionOrder(content) {
		e.mutex.Lock()
		e.order = append(e.order, id)
		e.mutex.Unlock()
		resp.Responses = append(resp.Responses, e.handle(content.Requests[id]))
	}
	b, err := zmux.EncodeResponseContent(&resp)
	if err != nil {
		return nil, err
	}
	reply := zmux.NewReplyPack(p, b)
	if p.Get(zmux.CONTENT_ENCODING) != "" {
		if err := zmux.EncodePayload(reply, 1); err != nil {
			return nil, err
		}
	}
	return reply, nil
}

func (e *executor) packs() []*zmux.Pack {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]*zmux.Pack(nil), e.received...)
}

func (e *executor) executed() []int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return append([]int(nil), e.order...)
}

// executionOrder 先执行根，再执行其 dependents
func executionOrder(content *zmux.MultiplexedRequestContent) []int {
	incoming := make(map[int]int)
	for _, ir := range content.Requests {
		for _, d := range ir.DependentRequestIDs {
			incoming[d]++
		}
	}
	var order []int
	var visit func(id int)
	visit = func(id int) {
		order = append(order, id)
		for _, d := range content.Requests[id].DependentRequestIDs {
			visit(d)
		}
	}
	for _, ir := range content.Requests {
		if incoming[ir.ID] == 0 {
			visit(ir.ID)
		}
	}
	return order
}

// okEntity 返回 200 与 msgpack 编码的实体
func okEntity(id int, v any) zmux.IndividualResponse {
	body, err := zmux.EncodeEntity(v)
	if err != nil {
		panic(err)
	}
	return zmux.IndividualResponse{
		ID:      id,
		Status:  http.StatusOK,
		Headers: zmux.Header{"Content-Type": {zmux.ContentType}},
		Body:    body,
	}
}

func notFound(id int) zmux.IndividualResponse {
	return zmux.IndividualResponse{
		ID:     id,
		Status: http.StatusNotFound,
		Error:  &zmux.ErrorResponse{Status: http.StatusNotFound, Code: "account.not_found", Message: "no such account"},
	}
}

// outcome 记录某个 Handler 收到的结果
type outcome struct {
	mutex     sync.Mutex
	successes []*zmux.IndividualResponse
	failures  []error
}

func (o *outcome) handler() Handler {
	return HandlerFuncs{
		Success: func(resp *zmux.IndividualResponse) error {
			o.mutex.Lock()
			o.successes = append(o.successes, resp)
			o.mutex.Unlock()
			return nil
		},
		Failure: func(err error) {
			o.mutex.Lock()
			o.failures = append(o.failures, err)
			o.mutex.Unlock()
		},
	}
}

func (o *outcome) count() int {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	return len(o.successes) + len(o.failures)
}

func (o *outcome) failure() error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if len(o.failures) == 0 {
		return nil
	}
	return o.failures[0]
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
