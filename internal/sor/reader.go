package sor

import (
	"bytes"

	"golang.org/x/text/encoding"

	"example.com/sorgate/internal/common"
)

const (
	shortLen = 2
	longLen  = 4
)

// readUint decodes n (1..4) little-endian bytes at off as an unsigned value.
func readUint(buf []byte, off, n int) (uint32, error) {
	if off < 0 || n < 1 || n > longLen || off+n > len(buf) {
		return 0, ErrBufferUnderrun
	}
	var v uint32
	for i := 0; i < n; i++ {
		v |= uint32(buf[off+i]) << (8 * i)
	}
	return v, nil
}

// readFixedString returns exactly n bytes at off. Embedded NULs are kept.
func readFixedString(buf []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(buf) {
		return nil, ErrBufferUnderrun
	}
	return buf[off : off+n : off+n], nil
}

// readCString returns the bytes from off up to the first NUL. Without a
// terminator the rest of the buffer is returned, or ErrUnterminatedString
// when strict is set. The next field starts at off+len(result)+1.
func readCString(buf []byte, off int, strict bool) ([]byte, error) {
	if off < 0 || off > len(buf) {
		return nil, ErrBufferUnderrun
	}
	rest := buf[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		if strict {
			return nil, ErrUnterminatedString
		}
		end = len(rest)
	}
	return rest[:end:end], nil
}

// cursor reads one block's fields in format order. The first failed read
// is kept in err and every later read returns a zero value.
type cursor struct {
	buf    []byte
	off    int
	block  string
	strict bool
	text   encoding.Encoding
	err    error
}

func newCursor(block string, content []byte, strict bool, text encoding.Encoding) *cursor {
	return &cursor{buf: content, block: block, strict: strict, text: text}
}

func (c *cursor) fail(field string, err error) {
	if c.err == nil {
		c.err = &FieldError{Block: c.block, Field: field, Offset: c.off, Err: err}
	}
}

func (c *cursor) failed() bool { return c.err != nil }

func (c *cursor) remaining() int {
	if c.off >= len(c.buf) {
		return 0
	}
	return len(c.buf) - c.off
}

func (c *cursor) uint(field string, n int) uint32 {
	if c.err != nil {
		return 0
	}
	v, err := readUint(c.buf, c.off, n)
	if err != nil {
		c.fail(field, err)
		return 0
	}
	c.off += n
	return v
}

func (c *cursor) u16(field string) uint16 { return uint16(c.uint(field, shortLen)) }

func (c *cursor) u32(field string) uint32 { return c.uint(field, longLen) }

func (c *cursor) scaled16(field string, div float64) float64 {
	return scale(c.uint(field, shortLen), div)
}

func (c *cursor) scaled32(field string, div float64) float64 {
	return scale(c.uint(field, longLen), div)
}

func (c *cursor) fixed(field string, n int) string {
	if c.err != nil {
		return ""
	}
	raw, err := readFixedString(c.buf, c.off, n)
	if err != nil {
		c.fail(field, err)
		return ""
	}
	c.off += n
	return decodeText(c.text, raw)
}

func (c *cursor) cstring(field string) string {
	if c.err != nil {
		return ""
	}
	raw, err := readCString(c.buf, c.off, c.strict)
	if err != nil {
		c.fail(field, err)
		return ""
	}
	c.off += len(raw) + 1
	return decodeText(c.text, raw)
}

// blockID consumes the id string that opens every block content.
func (c *cursor) blockID() {
	start := c.off
	id := c.cstring("id")
	if c.err != nil {
		return
	}
	if id == "" {
		c.off = start
		c.fail("id", ErrEmptyBlockID)
		return
	}
	if id != c.block {
		common.Logf("block %s: content id %q does not match header id", c.block, id)
	}
}

// capHint bounds a slice capacity for n repeated records by what the
// remaining bytes could possibly hold.
func (c *cursor) capHint(n uint32, minSize int) int {
	limit := c.remaining() / minSize
	if int64(n) < int64(limit) {
		return int(n)
	}
	return limit
}

func scale(raw uint32, div float64) float64 {
	if raw == 0 {
		return 0
	}
	return float64(raw) / div
}
