package inode

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

// Alloc claims the first free inode number and gives it `refs=1`, an empty
// size and one pre-allocated block at `pointers[0]`. Nothing stays claimed
// on failure.
func Alloc(fs *FileSystem, out *Inode) error {
	inodes := fs.Blocks.Inodes()
	ino, ok := inodes.Alloc()
	if !ok {
		return fmt.Errorf("allocating inode: %w", OutOfInodesErr)
	}

	b, err := fs.Blocks.Alloc()
	if err != nil {
		inodes.Free(ino)
		return fmt.Errorf("allocating inode `%d`: %w", ino, err)
	}

	inode := Inode{Ino: ino, Refs: 1, Pointers: [DirectBlocksCount]Block{b}}
	if err := fs.InodeStore.Put(&inode); err != nil {
		fs.Blocks.Free(b)
		inodes.Free(ino)
		return fmt.Errorf("allocating inode `%d`: %w", ino, err)
	}

	*out = inode
	return nil
}

// Free releases every block the inode owns and returns its number to the
// inode bitmap. Callers must have dropped `refs` to zero first.
func Free(fs *FileSystem, inode *Inode) error {
	if err := Shrink(fs, inode, 0); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}
	if inode.Size != 0 || inode.Indirect != BlockNil {
		panic(fmt.Sprintf(
			"freeing inode `%d`: extent map not empty after shrinking",
			inode.Ino,
		))
	}

	if inode.Pointers[0] != BlockNil {
		fs.Blocks.Free(inode.Pointers[0])
	}
	cleared := Inode{Ino: inode.Ino}
	if err := fs.InodeStore.Put(&cleared); err != nil {
		return fmt.Errorf("freeing inode `%d`: %w", inode.Ino, err)
	}
	fs.Blocks.Inodes().Free(inode.Ino)
	*inode = cleared
	return nil
}

// Get fetches an allocated inode.
func Get(fs *FileSystem, ino Ino, out *Inode) error {
	if ino >= fs.Blocks.Superblock.InodeCount ||
		!fs.Blocks.Inodes().Allocated(ino) {
		return fmt.Errorf("fetching inode `%d`: %w", ino, NotFoundErr)
	}
	if err := fs.InodeStore.Get(ino, out); err != nil {
		return fmt.Errorf("fetching inode `%d`: %w", ino, err)
	}
	return nil
}
