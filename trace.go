package zmux

import "go.opentelemetry.io/otel/propagation"

var _ propagation.TextMapCarrier = HeaderCarrier{}

// HeaderCarrier 让链路追踪信息随复合请求信封的 Header 传播
type HeaderCarrier Header

func (c HeaderCarrier) Get(key string) string {
	return Header(c).Get(key)
}

func (c HeaderCarrier) Set(key, value string) {
	Header(c).Set(key, value)
}

func (c HeaderCarrier) Keys() []string {
	return Header(c).Keys()
}
