package inode

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/blocks"
	"github.com/weberc2/blockfs/pkg/inode/indirect"
	"github.com/weberc2/blockfs/pkg/inode/store"
	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

const DefaultCacheCapacity = 64

// FileSystem is the state shared by the inode, directory and storage
// layers. Nothing in it is global, so independent instances can coexist.
type FileSystem struct {
	Blocks     *blocks.Store
	InodeStore *store.CachingInodeStore
	Indirect   indirect.ReadWriter
}

func New(blockStore *blocks.Store, cacheCapacity int) *FileSystem {
	if cacheCapacity < 1 {
		cacheCapacity = DefaultCacheCapacity
	}
	return &FileSystem{
		Blocks: blockStore,
		InodeStore: store.NewCachingInodeStore(
			store.NewVolumeInodeStore(
				blockStore.InodeTable(),
				blockStore.Superblock.InodeCount,
			),
			cacheCapacity,
		),
		Indirect: indirect.NewReadWriter(blockStore.Volume),
	}
}

// Flush writes dirty inodes and both bitmaps back to the volume.
func (fs *FileSystem) Flush() error {
	if err := fs.InodeStore.FlushAll(); err != nil {
		return fmt.Errorf("flushing filesystem: %w", err)
	}
	if err := fs.Blocks.Flush(); err != nil {
		return fmt.Errorf("flushing filesystem: %w", err)
	}
	return nil
}

// extentCount is the number of extents an inode of `size` bytes owns. The
// first extent is owned even when the inode is empty.
func extentCount(size Byte) Block {
	return Block(max(1, math.DivRoundUp(size, BlockSize)))
}
