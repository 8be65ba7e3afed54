package client

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hunyxv/zmux"
	"github.com/panjf2000/ants/v2"
	pkgerr "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "zmux"

var (
	ErrClientClosed = pkgerr.New("zmux-cli: client is closed")
	ErrNilTransport = pkgerr.New("zmux-cli: nil transport")
)

// Transport 外部提供的传输：发送一个复合请求信封，返回一个复合响应信封
type Transport interface {
	RoundTrip(ctx context.Context, req *zmux.Pack) (*zmux.Pack, error)
}

// TransportFunc 函数形式的 Transport
type TransportFunc func(ctx context.Context, req *zmux.Pack) (*zmux.Pack, error)

func (f TransportFunc) RoundTrip(ctx context.Context, req *zmux.Pack) (*zmux.Pack, error) {
	return f(ctx, req)
}

// Result 复合请求层面的结果
type Result struct {
	ID     string      // 复合请求 id
	Header zmux.Header // 复合响应信封头
	Report *Report
}

type Client struct {
	transport Transport
	opts      *options
	pool      *ants.Pool
	ownPool   bool
	demux     *Demultiplexer
	tracer    trace.Tracer

	requestCounter    metric.Int64Counter
	deliveryCounter   metric.Int64Counter
	durationHistogram metric.Float64Histogram

	closed int32
}

// NewClient 创建复合请求客户端
func NewClient(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}

	defOpts := &options{
		Logger:         zmux.NewLogger(),
		RequestTimeout: 10 * time.Second,
		MethodName:     "mux",
		Identity:       "cli-" + zmux.NewMessageID(),
	}
	for _, f := range opts {
		f(defOpts)
	}
	if defOpts.TracerProvider == nil {
		defOpts.TracerProvider = otel.GetTracerProvider()
	}
	if defOpts.MeterProvider == nil {
		defOpts.MeterProvider = otel.GetMeterProvider()
	}
	if defOpts.Propagator == nil {
		defOpts.Propagator = otel.GetTextMapPropagator()
	}

	cli := &Client{
		transport: transport,
		opts:      defOpts,
		pool:      defOpts.Pool,
		demux:     NewDemultiplexer(defOpts.Logger),
		tracer:    defOpts.TracerProvider.Tracer(instrumentationName),
	}
	if cli.pool == nil {
		size := defOpts.PoolSize
		if size <= 0 {
			size = ants.DefaultAntsPoolSize
		}
		pool, err := ants.NewPool(size, ants.WithNonblocking(true))
		if err != nil {
			return nil, pkgerr.WithMessage(err, "zmux-cli: failed to create work pool")
		}
		cli.pool = pool
		cli.ownPool = true
	}

	var err error
	meter := defOpts.MeterProvider.Meter(instrumentationName)
	cli.requestCounter, err = meter.Int64Counter("zmux.client.requests",
		metric.WithUnit("{request}"),
		metric.WithDescription("Number of multiplexed requests sent"),
	)
	if err != nil {
		defOpts.Logger.Warnf("zmux-cli: requests counter: %v", err)
	}
	cli.deliveryCounter, err = meter.Int64Counter("zmux.client.deliveries",
		metric.WithUnit("{response}"),
		metric.WithDescription("Number of individual outcomes delivered to handlers"),
	)
	if err != nil {
		defOpts.Logger.Warnf("zmux-cli: deliveries counter: %v", err)
	}
	cli.durationHistogram, err = meter.Float64Histogram("zmux.client.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of multiplexed requests"),
	)
	if err != nil {
		defOpts.Logger.Warnf("zmux-cli: duration histogram: %v", err)
	}
	return cli, nil
}

// Send 发送复合请求并阻塞到每个回调都收到结果
//
//	返回的 error 是复合请求层面的错误（传输、远端异常、响应无法解析、取消或超时），
//	单个请求的失败只会送达对应的回调。
func (cli *Client) Send(ctx context.Context, req *MultiplexedRequest) (*Result, error) {
	if req == nil {
		return nil, zmux.ErrNilRequest
	}
	if !req.markSent() {
		return nil, zmux.ErrAlreadySent
	}

	start := time.Now()
	if cli.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cli.opts.RequestTimeout)
		defer cancel()
	}

	ctx, span := cli.tracer.Start(ctx, "zmux/"+cli.opts.MethodName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("zmux.id", req.ID()),
			attribute.String("zmux.mode", req.Mode().String()),
			attribute.Int("zmux.requests", req.Len()),
		),
	)
	defer span.End()

	result, err := cli.send(ctx, req)
	cli.record(ctx, span, req, result.Report, err, start)
	return result, err
}

func (cli *Client) send(ctx context.Context, req *MultiplexedRequest) (*Result, error) {
	result := &Result{ID: req.ID()}
	if cli.isClosed() {
		result.Report = cli.demux.Abort(req.table, ErrClientClosed)
		return result, ErrClientClosed
	}

	pack, err := cli.newPack(ctx, req)
	if err != nil {
		result.Report = cli.demux.Abort(req.table, err)
		return result, err
	}

	type reply struct {
		pack *zmux.Pack
		err  error
	}
	// 超时或取消后迟到的响应直接丢弃
	replyCh := make(chan reply, 1)
	go func() {
		p, err := cli.transport.RoundTrip(ctx, pack)
		replyCh <- reply{pack: p, err: err}
	}()

	select {
	case <-ctx.Done():
		err := ctx.Err()
		result.Report = cli.demux.Abort(req.table, err)
		return result, err
	case rep := <-replyCh:
		if rep.err != nil {
			result.Report = cli.demux.Abort(req.table, rep.err)
			return result, pkgerr.WithMessage(rep.err, "zmux-cli: round trip")
		}
		if rep.pack == nil {
			err := pkgerr.New("zmux-cli: transport returned no reply")
			result.Report = cli.demux.Abort(req.table, err)
			return result, err
		}
		for _, f := range cli.opts.AfterReceive {
			f(pack, rep.pack)
		}
		if err := rep.pack.Err(); err != nil {
			result.Report = cli.demux.Abort(req.table, err)
			return result, pkgerr.WithMessage(err, "zmux-cli: remote")
		}

		result.Header = rep.pack.Header
		if msgid := rep.pack.MessageID(); msgid != "" && msgid != req.ID() {
			result.Report = cli.demux.Malformed(req.table,
				pkgerr.Errorf("reply %s does not match request %s", msgid, req.ID()))
			return result, result.Report.Malformed
		}
		payload, err := zmux.DecodePayload(rep.pack)
		if err != nil {
			result.Report = cli.demux.Malformed(req.table, err)
			return result, result.Report.Malformed
		}
		result.Report = cli.demux.Demux(payload, req.table)
		if result.Report.Malformed != nil {
			return result, result.Report.Malformed
		}
		return result, nil
	}
}

// Go 在工作池中异步发送，done 在所有回调收到结果后调用
//
//	工作池拒绝任务时，每个回调都会收到 *zmux.TransportError。
func (cli *Client) Go(ctx context.Context, req *MultiplexedRequest, done func(*Result, error)) error {
	if req == nil {
		return zmux.ErrNilRequest
	}
	err := cli.pool.Submit(func() {
		result, err := cli.Send(ctx, req)
		if done != nil {
			done(result, err)
		}
	})
	if err == nil {
		return nil
	}

	err = pkgerr.WithMessage(err, "zmux-cli: submit")
	if req.markSent() {
		cli.demux.Abort(req.table, err)
	}
	return err
}

func (cli *Client) newPack(ctx context.Context, req *MultiplexedRequest) (*zmux.Pack, error) {
	pack := zmux.NewRequestPack(req.ID(), cli.opts.MethodName, req.Payload())
	pack.Identity = cli.opts.Identity
	if err := zmux.EncodePayload(pack, cli.opts.CompressionLevel); err != nil {
		return nil, err
	}
	cli.opts.Propagator.Inject(ctx, zmux.HeaderCarrier(pack.Header))
	for _, f := range cli.opts.BeforeSend {
		f(pack)
	}
	return pack, nil
}

func (cli *Client) record(ctx context.Context, span trace.Span, req *MultiplexedRequest, report *Report, err error, start time.Time) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("zmux.method", cli.opts.MethodName),
		attribute.String("zmux.mode", req.Mode().String()),
		attribute.String("status", status),
	)
	if cli.requestCounter != nil {
		cli.requestCounter.Add(ctx, 1, attrs)
	}
	if cli.durationHistogram != nil {
		cli.durationHistogram.Record(ctx, time.Since(start).Seconds(), attrs)
	}
	if cli.deliveryCounter != nil && report != nil {
		cli.deliveryCounter.Add(ctx, int64(report.Succeeded), metric.WithAttributes(attribute.String("outcome", "success")))
		cli.deliveryCounter.Add(ctx, int64(report.Failed), metric.WithAttributes(attribute.String("outcome", "failure")))
	}

	if report != nil {
		span.SetAttributes(
			attribute.Int("zmux.succeeded", report.Succeeded),
			attribute.Int("zmux.failed", report.Failed),
			attribute.Int("zmux.unknown", len(report.Unknown)),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (cli *Client) isClosed() bool {
	return atomic.LoadInt32(&cli.closed) == 1
}

// Close 关闭客户端；不会关闭 Transport
func (cli *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&cli.closed, 0, 1) {
		return nil
	}
	if cli.ownPool {
		cli.pool.Release()
	}
	return nil
}
