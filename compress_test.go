package zmux

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPayloadCompression(t *testing.T) {
	c := qt.New(t)

	payload := bytes.Repeat([]byte("multiplexed request payload "), 64)
	p := NewRequestPack("msg-1", "mux", append([]byte(nil), payload...))
	c.Assert(EncodePayload(p, 3), qt.IsNil)
	c.Assert(p.Get(CONTENT_ENCODING), qt.Equals, EncodingZstd)
	c.Assert(len(p.Args[0]) < len(payload), qt.IsTrue)

	got, err := DecodePayload(p)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, payload)
}

func TestPayloadNoCompression(t *testing.T) {
	c := qt.New(t)

	p := NewRequestPack("msg-1", "mux", []byte("plain"))
	c.Assert(EncodePayload(p, 0), qt.IsNil)
	c.Assert(p.Header.Has(CONTENT_ENCODING), qt.IsFalse)

	got, err := DecodePayload(p)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "plain")
}

func TestDecodePayloadUnknownEncoding(t *testing.T) {
	c := qt.New(t)

	p := NewRequestPack("msg-1", "mux", []byte("x"))
	p.Set(CONTENT_ENCODING, "br")
	_, err := DecodePayload(p)
	c.Assert(err, qt.ErrorMatches, `zmux: unsupported content encoding "br"`)

	p.Set(CONTENT_ENCODING, EncodingZstd)
	_, err = DecodePayload(p)
	c.Assert(err, qt.Not(qt.IsNil))
}
