package zmux

import (
	"net/textproto"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	REQUEST = string(rune(iota + 1)) // 请求包
	REPLY                            // 响应包，与 req 对应的回复
	ERROR                            // 异常包
)

const (
	MESSAGEID        = "__msg_id__"           // 消息id
	METHOD_NAME      = "__method_name__"      // 方法名称
	CONTENT_ENCODING = "__content_encoding__" // 载荷压缩方式
	STATUS           = "__status__"           // 复合响应状态
)

// Header 头部信息，key 不区分大小写，同名 value 按添加顺序保留
type Header map[string][]string

var _ msgpack.CustomEncoder = Header(nil)

func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = []string{value}
}

func (h Header) Add(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	h[key] = append(h[key], value)
}

func (h Header) Get(key string) string {
	v := h.Values(key)
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values 返回 key 对应的全部值；远端发来的 key 可能未规范化，
// 同一个 key 的多种大小写写法按 key 排序后合并
func (h Header) Values(key string) []string {
	var matched []string
	for k := range h {
		if strings.EqualFold(k, key) {
			matched = append(matched, k)
		}
	}
	switch len(matched) {
	case 0:
		return nil
	case 1:
		return h[matched[0]]
	}

	sort.Strings(matched)
	var values []string
	for _, k := range matched {
		values = append(values, h[k]...)
	}
	return values
}

func (h Header) Del(key string) {
	delete(h, textproto.CanonicalMIMEHeaderKey(key))
}

func (h Header) Has(key string) bool {
	return h.Values(key) != nil
}

// Keys 排序后的全部 key
func (h Header) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncodeMsgpack key 排序后写出，相同的 Header 总是得到相同的字节
func (h Header) EncodeMsgpack(enc *msgpack.Encoder) error {
	if h == nil {
		return enc.EncodeNil()
	}
	if err := enc.EncodeMapLen(len(h)); err != nil {
		return err
	}
	for _, k := range h.Keys() {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		vs := h[k]
		if vs == nil {
			if err := enc.EncodeNil(); err != nil {
				return err
			}
			continue
		}
		if err := enc.EncodeArrayLen(len(vs)); err != nil {
			return err
		}
		for _, v := range vs {
			if err := enc.EncodeString(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone 深拷贝
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	c := make(Header, len(h))
	for k, v := range h {
		c[k] = append([]string(nil), v...)
	}
	return c
}

type Pack struct {
	Identity string   `msgpack:"identity"`
	Stage    string   `msgpack:"stage"`
	Header   Header   `msgpack:"head"`
	Args     [][]byte `msgpack:"args"`
}

// NewRequestPack 复合请求信封
func NewRequestPack(msgid, method string, payload []byte) *Pack {
	p := &Pack{
		Stage: REQUEST,
		Args:  [][]byte{payload},
	}
	p.Set(MESSAGEID, msgid)
	p.SetMethodName(method)
	return p
}

// NewReplyPack 对 req 的应答
func NewReplyPack(req *Pack, payload []byte) *Pack {
	p := &Pack{
		Identity: req.Identity,
		Stage:    REPLY,
		Args:     [][]byte{payload},
	}
	p.Set(MESSAGEID, req.MessageID())
	p.SetMethodName(req.MethodName())
	return p
}

// NewErrorPack 对 req 的异常应答
func NewErrorPack(req *Pack, e error) *Pack {
	errRaw, _ := msgpack.Marshal(e.Error())
	p := &Pack{
		Identity: req.Identity,
		Stage:    ERROR,
		Args:     [][]byte{errRaw},
	}
	p.Set(MESSAGEID, req.MessageID())
	p.SetMethodName(req.MethodName())
	return p
}

func (p *Pack) Set(key, value string) {
	if p.Header == nil {
		p.Header = make(Header)
	}
	p.Header.Set(key, value)
}

func (p *Pack) Get(key string) string {
	if p.Header == nil {
		return ""
	}
	return p.Header.Get(key)
}

func (p *Pack) SetMethodName(method string) {
	p.Set(METHOD_NAME, method)
}

func (p *Pack) MethodName() string {
	return p.Get(METHOD_NAME)
}

func (p *Pack) MessageID() string {
	return p.Get(MESSAGEID)
}

// Payload 返回第一个参数
func (p *Pack) Payload() ([]byte, error) {
	if len(p.Args) == 0 || len(p.Args[0]) == 0 {
		return nil, ErrEmptyPayload
	}
	return p.Args[0], nil
}

// Err 异常包携带的错误，非异常包返回 nil
func (p *Pack) Err() error {
	if p.Stage != ERROR {
		return nil
	}
	if len(p.Args) == 0 {
		return errors.New("zmux: remote error")
	}
	var errStr string
	if err := msgpack.Unmarshal(p.Args[0], &errStr); err != nil {
		return errors.Wrap(err, "zmux: pack: undecodable remote error")
	}
	return errors.New(errStr)
}

func (p *Pack) MarshalMsgpack() ([]byte, error) {
	if p.Header == nil || !p.Header.Has(MESSAGEID) {
		p.Set(MESSAGEID, NewMessageID())
	}

	return marshal(struct {
		Identity string   `msgpack:"identity"`
		Stage    string   `msgpack:"stage"`
		Header   Header   `msgpack:"head"`
		Args     [][]byte `msgpack:"args"`
	}{
		Identity: p.Identity,
		Stage:    p.Stage,
		Header:   p.Header,
		Args:     p.Args,
	})
}
