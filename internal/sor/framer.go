package sor

import (
	"golang.org/x/text/encoding"
)

// Block headers are packed inside the map section while block contents are
// packed after it in the same order, so the framer keeps two cursors.
type framer struct {
	buf    []byte
	strict bool
	text   encoding.Encoding

	mapSection []byte
	header     int   // next block header, relative to the start of the file
	content    int64 // next block content, relative to the start of the file
}

func newFramer(buf []byte, strict bool, text encoding.Encoding) *framer {
	return &framer{buf: buf, strict: strict, text: text}
}

// readMap frames the leading Map block and positions both cursors.
func (f *framer) readMap() (Block, error) {
	off := 0
	if len(f.buf) == 0 {
		return Block{}, &FrameError{Field: "id", Err: ErrBufferUnderrun}
	}
	rawID, err := readCString(f.buf, off, f.strict)
	if err != nil {
		return Block{}, &FrameError{Field: "id", Offset: int64(off), Err: err}
	}
	id := decodeText(f.text, rawID)
	if id == "" {
		return Block{}, &FrameError{Field: "id", Offset: int64(off), Err: ErrEmptyBlockID}
	}
	off += len(rawID) + 1
	version, err := readUint(f.buf, off, shortLen)
	if err != nil {
		return Block{}, &FrameError{Block: id, Field: "version", Offset: int64(off), Err: err}
	}
	off += shortLen
	mapLength, err := readUint(f.buf, off, longLen)
	if err != nil {
		return Block{}, &FrameError{Block: id, Field: "length", Offset: int64(off), Err: err}
	}
	off += longLen
	count, err := readUint(f.buf, off, shortLen)
	if err != nil {
		return Block{}, &FrameError{Block: id, Field: "blockCount", Offset: int64(off), Err: err}
	}
	off += shortLen
	if int64(mapLength) > int64(len(f.buf)) {
		return Block{}, &FrameError{Block: id, Field: "content", Offset: 0, Err: ErrBufferUnderrun}
	}

	f.mapSection = f.buf[:mapLength:mapLength]
	f.header = off
	f.content = int64(mapLength)
	return Block{
		RawBlock: RawBlock{
			ID:      id,
			Version: uint16(version),
			Length:  mapLength,
			Content: f.mapSection,
		},
		Fields: &MapParams{BlockCount: uint16(count)},
	}, nil
}

// more reports whether another block header remains in the map section.
func (f *framer) more() bool {
	return f.header < len(f.mapSection)
}

// step frames the next block. Each successful step moves the header cursor
// forward by at least seven bytes, so the loop is bounded by the map length.
func (f *framer) step() (RawBlock, error) {
	header := f.header
	rawID, err := readCString(f.mapSection, header, f.strict)
	if err != nil {
		return RawBlock{}, &FrameError{Field: "id", Offset: int64(header), Err: err}
	}
	id := decodeText(f.text, rawID)
	if id == "" {
		return RawBlock{}, &FrameError{Field: "id", Offset: int64(header), Err: ErrEmptyBlockID}
	}
	header += len(rawID) + 1
	version, err := readUint(f.mapSection, header, shortLen)
	if err != nil {
		return RawBlock{}, &FrameError{Block: id, Field: "version", Offset: int64(header), Err: err}
	}
	header += shortLen
	length, err := readUint(f.mapSection, header, longLen)
	if err != nil {
		return RawBlock{}, &FrameError{Block: id, Field: "length", Offset: int64(header), Err: err}
	}
	header += longLen

	start := f.content
	end := start + int64(length)
	if end > int64(len(f.buf)) {
		return RawBlock{}, &FrameError{Block: id, Field: "content", Offset: start, Err: ErrBufferUnderrun}
	}

	f.header = header
	f.content = end
	return RawBlock{
		ID:      id,
		Version: uint16(version),
		Length:  length,
		Content: f.buf[start:end:end],
	}, nil
}
