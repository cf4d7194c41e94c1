package inode

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

const BlockOutOfRangeErr ConstError = "offset not covered by extent map"

// Truncate grows or shrinks the inode to `size`.
func Truncate(fs *FileSystem, inode *Inode, size Byte) error {
	if size > inode.Size {
		return Grow(fs, inode, size)
	}
	return Shrink(fs, inode, size)
}

// Grow allocates the extents needed to cover `size` bytes and updates the
// inode's size. It checks for enough free blocks up front, so running out of
// space leaves the inode untouched.
func Grow(fs *FileSystem, inode *Inode, size Byte) error {
	if size < inode.Size {
		panic(fmt.Sprintf(
			"growing inode `%d` from `%d` bytes to `%d` bytes",
			inode.Ino,
			inode.Size,
			size,
		))
	}
	if size > MaxFileSize {
		return fmt.Errorf(
			"growing inode `%d` to `%d` bytes: %w",
			inode.Ino,
			size,
			FileTooLargeErr,
		)
	}

	from, to := extentCount(inode.Size), extentCount(size)
	needed := to - from
	if to > DirectBlocksCount && inode.Indirect == BlockNil {
		needed++
	}
	if free := fs.Blocks.FreeBlocks(); free < needed {
		return fmt.Errorf(
			"growing inode `%d` to `%d` bytes: need `%d` blocks; `%d` free: %w",
			inode.Ino,
			size,
			needed,
			free,
			OutOfBlocksErr,
		)
	}

	clone := *inode
	for i := from; i < to; i++ {
		b, err := fs.Blocks.Alloc()
		if err == nil {
			err = setExtent(fs, &clone, i, b)
		}
		if err != nil {
			if b != BlockNil {
				fs.Blocks.Free(b)
			}
			if rollbackErr := releaseExtents(fs, &clone, from, i); rollbackErr != nil {
				err = fmt.Errorf("%w (rolling back: %v)", err, rollbackErr)
			}
			return fmt.Errorf(
				"growing inode `%d` to `%d` bytes: allocating extent `%d`: %w",
				inode.Ino,
				size,
				i,
				err,
			)
		}
	}

	clone.Size = size
	if err := fs.InodeStore.Put(&clone); err != nil {
		return fmt.Errorf(
			"growing inode `%d` to `%d` bytes: %w",
			inode.Ino,
			size,
			err,
		)
	}
	*inode = clone
	return nil
}

// Shrink releases extents past `size`, highest first, and the indirect block
// once none of its extents remain. Bytes past `size` in the last retained
// extent are zeroed.
func Shrink(fs *FileSystem, inode *Inode, size Byte) error {
	if size > inode.Size {
		panic(fmt.Sprintf(
			"shrinking inode `%d` from `%d` bytes to `%d` bytes",
			inode.Ino,
			inode.Size,
			size,
		))
	}

	clone := *inode
	from, to := extentCount(size), extentCount(inode.Size)
	if err := releaseExtents(fs, &clone, from, to); err != nil {
		return fmt.Errorf(
			"shrinking inode `%d` to `%d` bytes: %w",
			inode.Ino,
			size,
			err,
		)
	}

	last := from - 1
	start := size - Byte(last)*BlockSize
	end := min(inode.Size, Byte(from)*BlockSize) - Byte(last)*BlockSize
	if end > start {
		b, err := extent(fs, &clone, last)
		if err == nil {
			err = fs.Blocks.Zero(b, start, end-start)
		}
		if err != nil {
			return fmt.Errorf(
				"shrinking inode `%d` to `%d` bytes: zeroing tail: %w",
				inode.Ino,
				size,
				err,
			)
		}
	}

	clone.Size = size
	if err := fs.InodeStore.Put(&clone); err != nil {
		return fmt.Errorf(
			"shrinking inode `%d` to `%d` bytes: %w",
			inode.Ino,
			size,
			err,
		)
	}
	*inode = clone
	return nil
}

// BlockFor translates a byte offset into the block holding it.
func BlockFor(fs *FileSystem, inode *Inode, offset Byte) (Block, error) {
	logical := Block(offset / BlockSize)
	if offset < 0 || logical >= extentCount(inode.Size) {
		return BlockNil, fmt.Errorf(
			"translating offset `%d` of inode `%d`: %w",
			offset,
			inode.Ino,
			BlockOutOfRangeErr,
		)
	}
	b, err := extent(fs, inode, logical)
	if err != nil {
		return BlockNil, fmt.Errorf(
			"translating offset `%d` of inode `%d`: %w",
			offset,
			inode.Ino,
			err,
		)
	}
	if b == BlockNil {
		panic(fmt.Sprintf(
			"inode `%d`: extent `%d` is within size `%d` but unallocated",
			inode.Ino,
			logical,
			inode.Size,
		))
	}
	return b, nil
}

func extent(fs *FileSystem, inode *Inode, i Block) (Block, error) {
	if i < DirectBlocksCount {
		return inode.Pointers[i], nil
	}
	if inode.Indirect == BlockNil {
		return BlockNil, nil
	}
	return fs.Indirect.ReadIndirect(inode.Indirect, i-DirectBlocksCount)
}

func setExtent(fs *FileSystem, inode *Inode, i Block, b Block) error {
	if i < DirectBlocksCount {
		inode.Pointers[i] = b
		return nil
	}
	if inode.Indirect == BlockNil {
		indirect, err := fs.Blocks.Alloc()
		if err != nil {
			return fmt.Errorf("allocating indirect block: %w", err)
		}
		inode.Indirect = indirect
	}
	return fs.Indirect.WriteIndirect(inode.Indirect, i-DirectBlocksCount, b)
}

// releaseExtents frees extents `[from, to)` from the top down, then the
// indirect block if no indirect extent is left.
func releaseExtents(fs *FileSystem, inode *Inode, from, to Block) error {
	for i := to; i > from; i-- {
		idx := i - 1
		b, err := extent(fs, inode, idx)
		if err != nil {
			return fmt.Errorf("releasing extent `%d`: %w", idx, err)
		}
		if b != BlockNil {
			fs.Blocks.Free(b)
		}
		if idx < DirectBlocksCount {
			inode.Pointers[idx] = BlockNil
		} else if err := fs.Indirect.WriteIndirect(
			inode.Indirect,
			idx-DirectBlocksCount,
			BlockNil,
		); err != nil {
			return fmt.Errorf("releasing extent `%d`: %w", idx, err)
		}
	}

	if from <= DirectBlocksCount && inode.Indirect != BlockNil {
		fs.Blocks.Free(inode.Indirect)
		inode.Indirect = BlockNil
	}
	return nil
}
