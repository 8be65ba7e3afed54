package zmux

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ContentType 单个请求/响应 body 的编码
const ContentType = "application/x-msgpack"

// EncodeRequestContent 确定性编码复合请求
func EncodeRequestContent(c *MultiplexedRequestContent) ([]byte, error) {
	b, err := marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "zmux: encode multiplexed request")
	}
	return b, nil
}

// DecodeRequestContent 远端执行方使用的镜像操作
func DecodeRequestContent(b []byte) (*MultiplexedRequestContent, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPayload
	}
	var c MultiplexedRequestContent
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "zmux: decode multiplexed request")
	}
	return &c, nil
}

// EncodeResponseContent 远端执行方使用的镜像操作
func EncodeResponseContent(c *MultiplexedResponseContent) ([]byte, error) {
	b, err := marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "zmux: encode multiplexed response")
	}
	return b, nil
}

func DecodeResponseContent(b []byte) (*MultiplexedResponseContent, error) {
	if len(b) == 0 {
		return nil, ErrEmptyPayload
	}
	var c MultiplexedResponseContent
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return nil, errors.Wrap(err, "zmux: decode multiplexed response")
	}
	return &c, nil
}

// EncodeEntity 以与请求 body 相同的方式编码实体
func EncodeEntity(v any) (msgpack.RawMessage, error) {
	b, err := marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "zmux: encode entity")
	}
	return msgpack.RawMessage(b), nil
}

// DecodeEntity 将 body 解码到 v
func DecodeEntity(body []byte, v any) error {
	return msgpack.Unmarshal(body, v)
}
