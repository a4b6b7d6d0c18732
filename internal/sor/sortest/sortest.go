// Package sortest assembles synthetic SOR buffers for tests and samples.
package sortest

import "encoding/binary"

// Writer appends little-endian SOR fields to a byte slice.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
	return w
}

// CString appends s followed by a NUL terminator.
func (w *Writer) CString(s string) *Writer {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	return w
}

// Fixed appends s padded with spaces or cut to exactly n bytes.
func (w *Writer) Fixed(s string, n int) *Writer {
	for i := 0; i < n; i++ {
		if i < len(s) {
			w.buf = append(w.buf, s[i])
		} else {
			w.buf = append(w.buf, ' ')
		}
	}
	return w
}

func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns a copy of the accumulated bytes.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// Block is one block to place after the map section. Content normally
// starts with the block id and its terminator.
type Block struct {
	ID      string
	Version uint16
	Content []byte
}

// Content starts a block content with its id string.
func Content(id string) *Writer {
	return NewWriter().CString(id)
}

// MapLength returns the map section length for the given blocks.
func MapLength(blocks ...Block) int {
	n := len("Map") + 1 + 2 + 4 + 2
	for _, b := range blocks {
		n += len(b.ID) + 1 + 2 + 4
	}
	return n
}

// File builds a complete buffer: the Map block declaring every block,
// then each block content in order.
func File(mapVersion uint16, blocks ...Block) []byte {
	w := NewWriter().
		CString("Map").
		U16(mapVersion).
		U32(uint32(MapLength(blocks...))).
		U16(uint16(len(blocks) + 1))
	for _, b := range blocks {
		w.CString(b.ID).U16(b.Version).U32(uint32(len(b.Content)))
	}
	for _, b := range blocks {
		w.Raw(b.Content)
	}
	return w.Bytes()
}
