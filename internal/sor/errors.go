package sor

import (
	"errors"
	"fmt"
)

var (
	ErrBufferUnderrun     = errors.New("sor: read past end of buffer")
	ErrTruncatedBlock     = errors.New("sor: block extends past end of buffer")
	ErrFieldOutOfRange    = errors.New("sor: field exceeds block content")
	ErrUnterminatedString = errors.New("sor: string missing NUL terminator")
	ErrEmptyBlockID       = errors.New("sor: empty block id")
	ErrUnknownEncoding    = errors.New("sor: unknown text encoding")
)

// FieldError reports a field that could not be read from a block's content.
// It matches ErrFieldOutOfRange and unwraps to the primitive cause.
type FieldError struct {
	Block  string
	Field  string
	Offset int
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("sor: %s.%s at offset %d: %v", e.Block, e.Field, e.Offset, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Is(target error) bool { return target == ErrFieldOutOfRange }

// FrameError reports a failure to frame the block sequence. Every framing
// failure matches ErrTruncatedBlock since later offsets cannot be trusted.
type FrameError struct {
	Block  string
	Field  string
	Offset int64
	Err    error
}

func (e *FrameError) Error() string {
	name := e.Block
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("sor: frame %s %s at offset %d: %v", name, e.Field, e.Offset, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

func (e *FrameError) Is(target error) bool { return target == ErrTruncatedBlock }
