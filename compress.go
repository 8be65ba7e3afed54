package zmux

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// EncodingZstd 信封 CONTENT_ENCODING 头的取值
const EncodingZstd = "zstd"

var (
	encoders sync.Map // level:*zstd.Encoder

	decoderOnce sync.Once
	decoder     *zstd.Decoder
	decoderErr  error
)

func zstdEncoder(level int) (*zstd.Encoder, error) {
	if enc, ok := encoders.Load(level); ok {
		return enc.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	actual, loaded := encoders.LoadOrStore(level, enc)
	if loaded {
		enc.Close()
	}
	return actual.(*zstd.Encoder), nil
}

// CompressPayload 按 zstd 等级压缩复合载荷
func CompressPayload(level int, b []byte) ([]byte, error) {
	enc, err := zstdEncoder(level)
	if err != nil {
		return nil, errors.Wrap(err, "zmux: zstd encoder")
	}
	return enc.EncodeAll(b, make([]byte, 0, len(b))), nil
}

// DecompressPayload 解压 zstd 载荷
func DecompressPayload(b []byte) ([]byte, error) {
	decoderOnce.Do(func() {
		decoder, decoderErr = zstd.NewReader(nil)
	})
	if decoderErr != nil {
		return nil, errors.Wrap(decoderErr, "zmux: zstd decoder")
	}
	out, err := decoder.DecodeAll(b, nil)
	if err != nil {
		return nil, errors.Wrap(err, "zmux: zstd decompress")
	}
	return out, nil
}

// EncodePayload 根据压缩等级编码并设置信封头；level <= 0 不压缩
func EncodePayload(p *Pack, level int) error {
	if level <= 0 || len(p.Args) == 0 {
		return nil
	}
	b, err := CompressPayload(level, p.Args[0])
	if err != nil {
		return err
	}
	p.Args[0] = b
	p.Set(CONTENT_ENCODING, EncodingZstd)
	return nil
}

// DecodePayload 读取信封载荷，按 CONTENT_ENCODING 解压
func DecodePayload(p *Pack) ([]byte, error) {
	b, err := p.Payload()
	if err != nil {
		return nil, err
	}
	switch enc := p.Get(CONTENT_ENCODING); enc {
	case "":
		return b, nil
	case EncodingZstd:
		return DecompressPayload(b)
	default:
		return nil, errors.Errorf("zmux: unsupported content encoding %q", enc)
	}
}
