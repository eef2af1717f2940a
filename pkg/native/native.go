// Package native implements the byte-oriented native-messaging channel:
// each message is a 4-byte little-endian length prefix followed by that
// many bytes of JSON body.
package native

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length prefix size in bytes.
const HeaderSize = 4

// MaxMessageSize bounds a declared body length; anything larger is a
// framing error rather than an allocation request.
const MaxMessageSize = 32 << 20

// ErrNeedMoreData reports that the buffered bytes do not yet hold a
// complete message. It is the normal partial-read outcome, not a
// failure.
var ErrNeedMoreData = errors.New("native: need more data")

// Decoder accumulates bytes and yields complete message bodies.
type Decoder struct {
	buf []byte
}

// Feed appends raw bytes from the wire.
func (d *Decoder) Feed(p []byte) {
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes waiting to be decoded.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Next returns the next complete message body, or ErrNeedMoreData when
// fewer bytes are buffered than the declared length.
func (d *Decoder) Next() ([]byte, error) {
	if len(d.buf) < HeaderSize {
		return nil, ErrNeedMoreData
	}
	length := binary.LittleEndian.Uint32(d.buf)
	if length > MaxMessageSize {
		return nil, fmt.Errorf("native: message length %d exceeds limit", length)
	}
	total := HeaderSize + int(length)
	if len(d.buf) < total {
		return nil, ErrNeedMoreData
	}

	body := make([]byte, length)
	copy(body, d.buf[HeaderSize:total])
	d.buf = d.buf[total:]
	return body, nil
}

// Encode frames a message body for the wire.
func Encode(body []byte) []byte {
	out := make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(body)))
	copy(out[HeaderSize:], body)
	return out
}
