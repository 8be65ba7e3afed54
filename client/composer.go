package client

import (
	"sync"

	"github.com/hunyxv/zmux"
	pkgerr "github.com/pkg/errors"
)

// Mode 复合请求的执行方式
type Mode int

const (
	Parallel   Mode = iota // 各请求相互独立，执行顺序无保证
	Sequential             // 按提交顺序依次执行
)

func (m Mode) String() string {
	switch m {
	case Parallel:
		return "parallel"
	case Sequential:
		return "sequential"
	}
	return "unknown"
}

type ComposerOption func(opt *composerOptions)

type composerOptions struct {
	Logger      zmux.Logger
	MaxRequests int // 0 表示不限制
}

// WithComposerLogger 设置 logger
func WithComposerLogger(logger zmux.Logger) ComposerOption {
	return func(opt *composerOptions) {
		opt.Logger = logger
	}
}

// WithMaxRequests 单个复合请求最多包含的请求数
func WithMaxRequests(n int) ComposerOption {
	return func(opt *composerOptions) {
		opt.MaxRequests = n
	}
}

// Composer 收集逻辑请求，分配 id 并构建依赖关系
type Composer struct {
	mode        Mode
	opts        *composerOptions
	descriptors []zmux.IndividualRequest
	forest      *dependencyForest
	table       *CorrelationTable
	closed      bool

	mutex sync.Mutex
}

func NewComposer(mode Mode, opts ...ComposerOption) *Composer {
	defOpts := &composerOptions{
		Logger: zmux.NewLogger(),
	}
	for _, f := range opts {
		f(defOpts)
	}

	return &Composer{
		mode:   mode,
		opts:   defOpts,
		forest: newDependencyForest(),
		table:  NewCorrelationTable(),
	}
}

// NewParallelComposer 并行执行的复合请求
func NewParallelComposer(opts ...ComposerOption) *Composer {
	return NewComposer(Parallel, opts...)
}

// NewSequentialComposer 顺序执行的复合请求
func NewSequentialComposer(opts ...ComposerOption) *Composer {
	return NewComposer(Sequential, opts...)
}

func (c *Composer) Mode() Mode { return c.mode }

// AddRequest 登记一个逻辑请求及其回调，返回分配的 id（从 0 开始按提交顺序递增）
func (c *Composer) AddRequest(r *zmux.Request, h Handler) (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return -1, zmux.ErrClosedComposition
	}
	if r == nil {
		return -1, zmux.ErrNilRequest
	}
	if h == nil {
		return -1, zmux.ErrNilHandler
	}
	if c.opts.MaxRequests > 0 && len(c.descriptors) >= c.opts.MaxRequests {
		return -1, pkgerr.WithMessagef(zmux.ErrTooManyRequests, "limit %d", c.opts.MaxRequests)
	}

	id := len(c.descriptors)
	if r.Entity != nil && !r.HasBody() {
		c.opts.Logger.Warnf("zmux: request %d: %s %s carries no body, entity ignored", id, r.Method, r.Path)
	}
	ir, err := zmux.NewIndividualRequest(id, r, nil)
	if err != nil {
		return -1, err
	}
	if err := c.table.Bind(id, h); err != nil {
		return -1, err
	}

	c.descriptors = append(c.descriptors, ir)
	c.forest.add(id)
	if c.mode == Sequential && id > 0 {
		c.forest.link(id-1, id)
	}
	return id, nil
}

// Len 已登记的请求数
func (c *Composer) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.descriptors)
}

// Build 完成组合，之后 Composer 不可再修改
func (c *Composer) Build() (*MultiplexedRequest, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return nil, zmux.ErrClosedComposition
	}
	if len(c.descriptors) == 0 {
		return nil, zmux.ErrEmptyComposition
	}
	if err := c.forest.validate(); err != nil {
		return nil, err
	}

	content := zmux.MultiplexedRequestContent{
		Requests: make([]zmux.IndividualRequest, len(c.descriptors)),
	}
	for i, ir := range c.descriptors {
		ir.DependentRequestIDs = c.forest.dependents(ir.ID)
		content.Requests[i] = ir
	}

	payload, err := zmux.EncodeRequestContent(&content)
	if err != nil {
		return nil, err
	}

	c.table.Freeze()
	c.closed = true
	return &MultiplexedRequest{
		id:      zmux.NewMessageID(),
		mode:    c.mode,
		content: content,
		payload: payload,
		table:   c.table,
	}, nil
}
