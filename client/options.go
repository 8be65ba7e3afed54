package client

import (
	"time"

	"github.com/hunyxv/zmux"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Option func(opt *options)

type options struct {
	Logger           zmux.Logger                    // logger
	RequestTimeout   time.Duration                  // 复合请求最长等待时间，0 表示只受 ctx 控制
	MethodName       string                         // 远端复合请求入口
	Identity         string                         // client id
	CompressionLevel int                            // zstd 压缩等级，0 表示不压缩
	PoolSize         int                            // 异步发送工作池大小（默认无限大）
	Pool             *ants.Pool                     // 外部提供的工作池
	TracerProvider   trace.TracerProvider           // 链路追踪
	MeterProvider    metric.MeterProvider           // 指标
	Propagator       propagation.TextMapPropagator // 链路信息注入信封
	BeforeSend       []zmux.BeforeSend
	AfterReceive     []zmux.AfterReceive
}

// WithBeforeSend 信封发出前的钩子，按添加顺序执行
func WithBeforeSend(f ...zmux.BeforeSend) Option {
	return func(opt *options) {
		opt.BeforeSend = append(opt.BeforeSend, f...)
	}
}

// WithAfterReceive 收到应答信封后的钩子，ERROR 信封也会经过
func WithAfterReceive(f ...zmux.AfterReceive) Option {
	return func(opt *options) {
		opt.AfterReceive = append(opt.AfterReceive, f...)
	}
}

// WithLogger 设置 logger
func WithLogger(logger zmux.Logger) Option {
	return func(opt *options) {
		opt.Logger = logger
	}
}

// WithRequestTimeout 复合请求最长等待时间
func WithRequestTimeout(t time.Duration) Option {
	return func(opt *options) {
		opt.RequestTimeout = t
	}
}

// WithMethodName 远端复合请求入口名称（默认 mux）
func WithMethodName(name string) Option {
	return func(opt *options) {
		opt.MethodName = name
	}
}

// WithIdentity 设置客户端id（不同客户端id不能相同）
func WithIdentity(id string) Option {
	return func(opt *options) {
		opt.Identity = id
	}
}

// WithCompression 使用 zstd 压缩复合载荷
func WithCompression(level int) Option {
	return func(opt *options) {
		opt.CompressionLevel = level
	}
}

// WithWorkPoolSize 设置异步发送工作池大小
func WithWorkPoolSize(size int) Option {
	return func(opt *options) {
		opt.PoolSize = size
	}
}

// WithWorkPool 使用外部工作池，Client.Close 不会释放它
func WithWorkPool(pool *ants.Pool) Option {
	return func(opt *options) {
		opt.Pool = pool
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(opt *options) {
		opt.TracerProvider = tp
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(opt *options) {
		opt.MeterProvider = mp
	}
}

func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(opt *options) {
		opt.Propagator = p
	}
}
