package encode

import (
	. "github.com/weberc2/blockfs/pkg/types"
)

// EncodeInode writes every field except `Ino`, which is implied by the
// record's position in the inode table.
func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]
	putU32(p, inodeRefsStart, inode.Refs)
	putU32(p, inodeModeStart, uint32(inode.Mode))
	putU64(p, inodeSizeStart, uint64(inode.Size))
	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		putBlock(p, inodePointersStart+i*BlockPointerSize, inode.Pointers[i])
	}
	putBlock(p, inodeIndirectStart, inode.Indirect)
}

func DecodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]
	inode.Refs = getU32(p, inodeRefsStart)
	inode.Mode = Mode(getU32(p, inodeModeStart))
	inode.Size = Byte(getU64(p, inodeSizeStart))
	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		inode.Pointers[i] = getBlock(p, inodePointersStart+i*BlockPointerSize)
	}
	inode.Indirect = getBlock(p, inodeIndirectStart)
}

const (
	inodeRefsStart = 0
	inodeRefsSize  = 4
	inodeRefsEnd   = inodeRefsStart + inodeRefsSize

	inodeModeStart = inodeRefsEnd
	inodeModeSize  = 4
	inodeModeEnd   = inodeModeStart + inodeModeSize

	inodeSizeStart = inodeModeEnd
	inodeSizeSize  = 8
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodePointersStart = inodeSizeEnd
	inodePointersSize  = Byte(DirectBlocksCount) * BlockPointerSize
	inodePointersEnd   = inodePointersStart + inodePointersSize

	inodeIndirectStart = inodePointersEnd
	inodeIndirectSize  = BlockPointerSize
	inodeIndirectEnd   = inodeIndirectStart + inodeIndirectSize
)
