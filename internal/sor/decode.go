package sor

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"

	"example.com/sorgate/internal/common"
)

type decodeFunc func(c *cursor) Fields

var decoders = map[string]decodeFunc{
	GenParamsBlockID: decodeGenParams,
	SupParamsBlockID: decodeSupParams,
	FxdParamsBlockID: decodeFxdParams,
	KeyEventsBlockID: decodeKeyEvents,
	LnkParamsBlockID: decodeLnkParams,
	DataPtsBlockID:   decodeDataPts,
	CksumBlockID:     decodeCksum,
}

// KnownBlock reports whether blocks with this id get a decoded record.
func KnownBlock(id string) bool {
	_, ok := decoders[id]
	return ok
}

// Options tunes string handling during decoding.
type Options struct {
	// StrictStrings rejects NUL-terminated strings that run to the end of
	// their block instead of taking the remaining bytes.
	StrictStrings bool
	// TextEncoding names the codepage of string fields, e.g. "latin1" or
	// "windows-1252". Empty means UTF-8.
	TextEncoding string
}

// Decoder turns SOR buffers into traces. A Decoder holds no per-call state
// and may be shared between goroutines.
type Decoder struct {
	strict  bool
	text    encoding.Encoding
	metrics *common.Metrics
}

// NewDecoder validates the options and returns a Decoder.
func NewDecoder(opts Options) (*Decoder, error) {
	enc, err := lookupEncoding(opts.TextEncoding)
	if err != nil {
		return nil, err
	}
	return &Decoder{strict: opts.StrictStrings, text: enc}, nil
}

// SetMetrics attaches a metrics recorder to the decoder.
func (d *Decoder) SetMetrics(m *common.Metrics) {
	d.metrics = m
}

// Decode frames buf and decodes every block in on-disk order. A framing
// failure aborts the decode and is returned together with the blocks
// decoded before it. Field failures stay on their block; see Trace.Err.
func (d *Decoder) Decode(buf []byte) (Trace, error) {
	if d == nil {
		d = &Decoder{}
	}
	var trace Trace
	f := newFramer(buf, d.strict, d.text)
	mapBlock, err := f.readMap()
	if err != nil {
		return trace, err
	}
	trace.Blocks = append(trace.Blocks, mapBlock)
	trace.ContentEnd = f.content
	d.record(mapBlock)

	for f.more() {
		raw, err := f.step()
		if err != nil {
			return trace, err
		}
		blk := d.decodeBlock(raw)
		trace.Blocks = append(trace.Blocks, blk)
		trace.ContentEnd = f.content
		d.record(blk)
	}

	if mp, ok := trace.Map(); ok && int(mp.BlockCount) != len(trace.Blocks) {
		common.Logf("map declares %d blocks, framed %d", mp.BlockCount, len(trace.Blocks))
	}
	return trace, nil
}

func (d *Decoder) decodeBlock(raw RawBlock) Block {
	blk := Block{RawBlock: raw}
	decode, ok := decoders[raw.ID]
	if !ok {
		return blk
	}
	c := newCursor(raw.ID, raw.Content, d.strict, d.text)
	blk.Fields = decode(c)
	if c.err != nil {
		blk.Err = c.err
	}
	return blk
}

func (d *Decoder) record(b Block) {
	if d.metrics == nil {
		return
	}
	d.metrics.AddBlock(int64(b.Length))
	if b.Failed() {
		d.metrics.IncFailed()
	}
	if b.Kind() == KindUnknown {
		d.metrics.IncUnknown()
	}
}

// Decode decodes buf with default options.
func Decode(buf []byte) (Trace, error) {
	return (&Decoder{}).Decode(buf)
}

// DecodeReader reads r to the end and decodes the result.
func DecodeReader(r io.Reader, opts Options) (Trace, error) {
	dec, err := NewDecoder(opts)
	if err != nil {
		return Trace{}, err
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return Trace{}, fmt.Errorf("read sor: %w", err)
	}
	return dec.Decode(buf)
}

// DecodeFile loads and decodes the file at path.
func DecodeFile(path string, opts Options) (Trace, error) {
	dec, err := NewDecoder(opts)
	if err != nil {
		return Trace{}, err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Trace{}, err
	}
	return dec.Decode(buf)
}
