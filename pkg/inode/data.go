package inode

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

// ReadAt copies file data starting at `offset` into `b`, stopping at the end
// of the file. It returns the number of bytes copied, which is zero when
// `offset` is at or past the end.
func ReadAt(fs *FileSystem, inode *Inode, offset Byte, b []byte) (Byte, error) {
	if offset >= inode.Size {
		return 0, nil
	}
	maxLength := min(Byte(len(b)), inode.Size-offset)
	var chunkBegin Byte

	for chunkBegin < maxLength {
		chunkOffset := (offset + chunkBegin) % BlockSize
		chunkLength := min(maxLength-chunkBegin, BlockSize-chunkOffset)

		block, err := BlockFor(fs, inode, offset+chunkBegin)
		if err == nil {
			err = fs.Blocks.ReadAt(
				block,
				chunkOffset,
				b[chunkBegin:chunkBegin+chunkLength],
			)
		}
		if err != nil {
			return chunkBegin, fmt.Errorf(
				"reading up to `%d` bytes from inode `%d` at offset `%d`: %w",
				len(b),
				inode.Ino,
				offset,
				err,
			)
		}

		chunkBegin += chunkLength
	}

	return chunkBegin, nil
}

// WriteAt copies `b` into the file at `offset`, growing the file first when
// the write extends past its end.
func WriteAt(fs *FileSystem, inode *Inode, offset Byte, b []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"writing to inode `%d` at offset `%d`: %w",
			inode.Ino,
			offset,
			BlockOutOfRangeErr,
		)
	}
	if end := offset + Byte(len(b)); end > inode.Size {
		if err := Grow(fs, inode, end); err != nil {
			return 0, fmt.Errorf(
				"writing `%d` bytes to inode `%d` at offset `%d`: %w",
				len(b),
				inode.Ino,
				offset,
				err,
			)
		}
	}

	var chunkBegin Byte
	for chunkBegin < Byte(len(b)) {
		chunkOffset := (offset + chunkBegin) % BlockSize
		chunkLength := min(Byte(len(b))-chunkBegin, BlockSize-chunkOffset)

		block, err := BlockFor(fs, inode, offset+chunkBegin)
		if err == nil {
			err = fs.Blocks.WriteAt(
				block,
				chunkOffset,
				b[chunkBegin:chunkBegin+chunkLength],
			)
		}
		if err != nil {
			return chunkBegin, fmt.Errorf(
				"writing `%d` bytes to inode `%d` at offset `%d`: %w",
				len(b),
				inode.Ino,
				offset,
				err,
			)
		}

		chunkBegin += chunkLength
	}

	return chunkBegin, nil
}
