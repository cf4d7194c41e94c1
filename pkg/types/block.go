package types

type Block uint64

const (
	BlockSize        Byte = 4 * KiB
	BlockPointerSize Byte = 8

	// BlockNil is never handed out by the allocator because block 0 holds
	// the superblock.
	BlockNil Block = 0

	// DirectBlocksCount is the number of extents addressed from the inode
	// itself; the rest go through the single indirect block.
	DirectBlocksCount Block = 2
	IndirectCapacity  Block = Block(BlockSize / BlockPointerSize)
	MaxExtents        Block = DirectBlocksCount + IndirectCapacity
	MaxFileSize       Byte  = Byte(MaxExtents) * BlockSize
)
