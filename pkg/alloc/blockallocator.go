package alloc

import . "github.com/weberc2/blockfs/pkg/types"

// BlockAllocator maps bitmap bits one-to-one onto block indices. The low
// blocks holding metadata are reserved when the volume is formatted, so
// `BlockNil` is never returned from a successful `Alloc()`.
type BlockAllocator struct {
	Allocator
}

func (ba BlockAllocator) Alloc() (Block, bool) {
	if b, ok := ba.Allocator.Alloc(); ok {
		return Block(b), true
	}
	return BlockNil, false
}

func (ba BlockAllocator) Free(b Block) {
	ba.Allocator.Free(uint64(b))
}

func (ba BlockAllocator) Reserve(b Block) {
	ba.Allocator.Reserve(uint64(b))
}

func (ba BlockAllocator) FreeBlocks() Block {
	return Block(ba.Allocator.FreeCount())
}
