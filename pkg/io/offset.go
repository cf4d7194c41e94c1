package io

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

type OffsetReadAt struct {
	inner  ReadAt
	offset Byte
}

func NewOffsetReadAt(inner ReadAt, offset Byte) *OffsetReadAt {
	return &OffsetReadAt{inner: inner, offset: offset}
}

func (r *OffsetReadAt) ReadAt(offset Byte, b []byte) error {
	if err := r.inner.ReadAt(offset+r.offset, b); err != nil {
		return fmt.Errorf(
			"reading at offset `%d` from base `%d`: %w",
			offset,
			r.offset,
			err,
		)
	}
	return nil
}

type OffsetWriteAt struct {
	inner  WriteAt
	offset Byte
}

func NewOffsetWriteAt(inner WriteAt, offset Byte) *OffsetWriteAt {
	return &OffsetWriteAt{inner: inner, offset: offset}
}

func (w *OffsetWriteAt) WriteAt(offset Byte, b []byte) error {
	if err := w.inner.WriteAt(offset+w.offset, b); err != nil {
		return fmt.Errorf(
			"writing at offset `%d` from base `%d`: %w",
			offset,
			w.offset,
			err,
		)
	}
	return nil
}

// OffsetVolume exposes the region of `inner` starting at `offset` as its own
// volume. The bitmaps and the inode table are each addressed this way.
type OffsetVolume struct {
	OffsetReadAt
	OffsetWriteAt
}

func NewOffsetVolume(inner Volume, offset Byte) *OffsetVolume {
	return &OffsetVolume{
		OffsetReadAt:  OffsetReadAt{inner: inner, offset: offset},
		OffsetWriteAt: OffsetWriteAt{inner: inner, offset: offset},
	}
}
