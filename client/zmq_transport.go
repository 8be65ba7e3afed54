package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hunyxv/zmux"
	zmq "github.com/pebbe/zmq4"
	pkgerr "github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrClientConnectClosed = pkgerr.New("zmux-cli: client connect is closed")

var _ Transport = (*ZmqTransport)(nil)

type ZmqOption func(opt *zmqOptions)

type zmqOptions struct {
	Logger       zmux.Logger
	Identity     string
	PollInterval time.Duration // 轮询间隔，同时也是发送队列的最大等待时间
}

func WithZmqLogger(logger zmux.Logger) ZmqOption {
	return func(opt *zmqOptions) {
		opt.Logger = logger
	}
}

// WithZmqIdentity 设置 socket identity
func WithZmqIdentity(id string) ZmqOption {
	return func(opt *zmqOptions) {
		opt.Identity = id
	}
}

func WithPollInterval(d time.Duration) ZmqOption {
	return func(opt *zmqOptions) {
		opt.PollInterval = d
	}
}

type outgoing struct {
	msgid string
	data  []byte
}

type incoming struct {
	pack *zmux.Pack
	err  error
}

// ZmqTransport 通过 DEALER socket 连接复合请求服务端，按 MESSAGEID 匹配应答
//
//	socket 只在 loop 协程中使用。
type ZmqTransport struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	opts     *zmqOptions
	endpoint string
	soc      *zmq.Socket
	sendCh   chan outgoing

	pending map[string]chan incoming
	mutex   sync.Mutex
	closed  int32
}

// NewZmqTransport 连接到 endpoint（如 tcp://127.0.0.1:8080）
func NewZmqTransport(endpoint string, opts ...ZmqOption) (*ZmqTransport, error) {
	defOpts := &zmqOptions{
		Logger:       zmux.NewLogger(),
		Identity:     "cli-" + zmux.NewMessageID(),
		PollInterval: 10 * time.Millisecond,
	}
	for _, f := range opts {
		f(defOpts)
	}
	if len(defOpts.Identity) == 0 {
		return nil, pkgerr.New("zmux-cli: client identity cannot be empty")
	}

	soc, err := zmq.NewSocket(zmq.DEALER)
	if err != nil {
		return nil, pkgerr.WithMessage(err, "zmux-cli: new socket")
	}
	if err = soc.SetIdentity(defOpts.Identity); err != nil {
		soc.Close()
		return nil, err
	}
	if err = soc.SetLinger(0); err != nil {
		soc.Close()
		return nil, err
	}
	if err = soc.Connect(endpoint); err != nil {
		soc.Close()
		return nil, pkgerr.WithMessagef(err, "zmux-cli: connect %s", endpoint)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &ZmqTransport{
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		opts:     defOpts,
		endpoint: endpoint,
		soc:      soc,
		sendCh:   make(chan outgoing, 64),
		pending:  make(map[string]chan incoming),
	}
	go t.loop()
	return t, nil
}

// Identity socket identity
func (t *ZmqTransport) Identity() string { return t.opts.Identity }

func (t *ZmqTransport) loop() {
	defer close(t.done)
	defer t.soc.Close()

	poller := zmq.NewPoller()
	poller.Add(t.soc, zmq.POLLIN)
	for {
		select {
		case <-t.ctx.Done():
			return
		default:
		}

		t.flush()
		polled, err := poller.Poll(t.opts.PollInterval)
		if err != nil {
			t.opts.Logger.Warnf("[zmux-cli]: poll: %v", err)
			continue
		}
		if len(polled) == 0 {
			continue
		}

		msg, err := t.soc.RecvMessageBytes(0)
		if err != nil {
			t.opts.Logger.Warnf("[zmux-cli]: recv: %v", err)
			continue
		}
		if len(msg) == 0 {
			continue
		}

		var p zmux.Pack
		if err := msgpack.Unmarshal(msg[len(msg)-1], &p); err != nil {
			t.opts.Logger.Warnf("[zmux-cli]: msgpack.Unmarshal fail: %+v", err)
			continue
		}
		t.deliver(p.MessageID(), incoming{pack: &p})
	}
}

func (t *ZmqTransport) flush() {
	for {
		select {
		case out := <-t.sendCh:
			if _, err := t.soc.SendBytes(out.data, zmq.DONTWAIT); err != nil {
				t.deliver(out.msgid, incoming{err: pkgerr.WithMessage(err, "zmux-cli: send")})
			}
		default:
			return
		}
	}
}

func (t *ZmqTransport) deliver(msgid string, in incoming) {
	t.mutex.Lock()
	ch, ok := t.pending[msgid]
	delete(t.pending, msgid)
	t.mutex.Unlock()

	if !ok {
		t.opts.Logger.Warnf("[zmux-cli]: returned result cannot find consumer, msgid: %s", msgid)
		return
	}
	ch <- in
}

func (t *ZmqTransport) register(msgid string) (chan incoming, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.isClosed() {
		return nil, ErrClientConnectClosed
	}
	if _, ok := t.pending[msgid]; ok {
		return nil, pkgerr.Errorf("zmux-cli: message %s is already in flight", msgid)
	}
	ch := make(chan incoming, 1)
	t.pending[msgid] = ch
	return ch, nil
}

func (t *ZmqTransport) unregister(msgid string) {
	t.mutex.Lock()
	delete(t.pending, msgid)
	t.mutex.Unlock()
}

// RoundTrip 发送 p 并等待 MESSAGEID 相同的应答
func (t *ZmqTransport) RoundTrip(ctx context.Context, p *zmux.Pack) (*zmux.Pack, error) {
	if t.isClosed() {
		return nil, ErrClientConnectClosed
	}

	msgid := p.MessageID()
	if msgid == "" {
		msgid = zmux.NewMessageID()
		p.Set(zmux.MESSAGEID, msgid)
	}
	if p.Identity == "" {
		p.Identity = t.opts.Identity
	}
	data, err := msgpack.Marshal(p)
	if err != nil {
		return nil, err
	}

	ch, err := t.register(msgid)
	if err != nil {
		return nil, err
	}

	select {
	case t.sendCh <- outgoing{msgid: msgid, data: data}:
	case <-ctx.Done():
		t.unregister(msgid)
		return nil, ctx.Err()
	case <-t.ctx.Done():
		t.unregister(msgid)
		return nil, ErrClientConnectClosed
	}

	select {
	case in := <-ch:
		return in.pack, in.err
	case <-ctx.Done():
		t.unregister(msgid)
		return nil, ctx.Err()
	case <-t.ctx.Done():
		t.unregister(msgid)
		return nil, ErrClientConnectClosed
	}
}

func (t *ZmqTransport) isClosed() bool {
	return atomic.LoadInt32(&t.closed) == 1
}

// Close 关闭连接，等待中的 RoundTrip 返回 ErrClientConnectClosed
func (t *ZmqTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}
	t.cancel()
	<-t.done

	t.mutex.Lock()
	defer t.mutex.Unlock()
	for msgid, ch := range t.pending {
		ch <- incoming{err: ErrClientConnectClosed}
		delete(t.pending, msgid)
	}
	return nil
}
