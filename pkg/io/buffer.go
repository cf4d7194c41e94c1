package io

import (
	"fmt"
	"io"

	. "github.com/weberc2/blockfs/pkg/types"
)

var _ Volume = (*Buffer)(nil)

// Buffer is a fixed-size in-memory volume. Accesses that run past the end
// fail with `io.ErrUnexpectedEOF` and copy nothing.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (b *Buffer) ReadAt(offset Byte, p []byte) error {
	if err := b.bounds(offset, p); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from buffer at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	copy(p, b.data[offset:])
	return nil
}

func (b *Buffer) WriteAt(offset Byte, p []byte) error {
	if err := b.bounds(offset, p); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to buffer at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	copy(b.data[offset:], p)
	return nil
}

func (b *Buffer) bounds(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > Byte(len(b.data)) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (b *Buffer) Bytes() []byte { return b.data }
