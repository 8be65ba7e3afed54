package zmux

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/pborman/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

var origin = time.Date(2021, 11, 17, 3, 47, 0, 0, time.UTC).UnixMilli()

// NewMessageID 生成复合请求 id：毫秒时间前缀 + 随机后缀
func NewMessageID() (id string) {
	now := time.Now().UnixMilli() - origin
	_uuid := uuid.NewRandom().Array()
	idPrefix := bytes.NewBuffer(make([]byte, 0, 8))
	binary.Write(idPrefix, binary.BigEndian, now)
	var _id [27]byte
	hex.Encode(_id[:], idPrefix.Bytes()[3:])
	_id[10] = '-'
	hex.Encode(_id[11:], _uuid[8:])
	return string(_id[:])
}

// marshal 确定性编码：map 的 key 排序后写出，相同输入得到相同字节
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
