package alloc

import . "github.com/weberc2/blockfs/pkg/types"

// InoAllocator maps bitmap bits one-to-one onto inode numbers, so the first
// inode ever allocated is `InoRoot`.
type InoAllocator struct {
	Allocator
}

func (ia InoAllocator) Alloc() (Ino, bool) {
	if ino, ok := ia.Allocator.Alloc(); ok {
		return Ino(ino), true
	}
	return 0, false
}

func (ia InoAllocator) Free(ino Ino) {
	ia.Allocator.Free(uint64(ino))
}

func (ia InoAllocator) Reserve(ino Ino) {
	ia.Allocator.Reserve(uint64(ino))
}

func (ia InoAllocator) Allocated(ino Ino) bool {
	return ia.Allocator.Get(uint64(ino))
}
