package encode

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

func EncodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) {
	p := b[:]
	putU64(p, superblockMagicStart, SuperblockMagic)
	putU64(p, superblockBlockSizeStart, uint64(sb.BlockSize))
	putBlock(p, superblockBlockCountStart, sb.BlockCount)
	putIno(p, superblockInodeCountStart, sb.InodeCount)
	copy(p[superblockUUIDStart:superblockUUIDEnd], sb.UUID[:])
}

func DecodeSuperblock(sb *Superblock, b *[SuperblockSize]byte) error {
	p := b[:]
	if magic := getU64(p, superblockMagicStart); magic != SuperblockMagic {
		return fmt.Errorf(
			"decoding superblock: wanted magic `%#x`; found `%#x`: %w",
			SuperblockMagic,
			magic,
			BadMagicErr,
		)
	}
	sb.BlockSize = Byte(getU64(p, superblockBlockSizeStart))
	sb.BlockCount = getBlock(p, superblockBlockCountStart)
	sb.InodeCount = getIno(p, superblockInodeCountStart)
	copy(sb.UUID[:], p[superblockUUIDStart:superblockUUIDEnd])
	return nil
}

const (
	superblockMagicStart = 0
	superblockMagicSize  = 8
	superblockMagicEnd   = superblockMagicStart + superblockMagicSize

	superblockBlockSizeStart = superblockMagicEnd
	superblockBlockSizeSize  = 8
	superblockBlockSizeEnd   = superblockBlockSizeStart + superblockBlockSizeSize

	superblockBlockCountStart = superblockBlockSizeEnd
	superblockBlockCountSize  = 8
	superblockBlockCountEnd   = superblockBlockCountStart + superblockBlockCountSize

	superblockInodeCountStart = superblockBlockCountEnd
	superblockInodeCountSize  = 8
	superblockInodeCountEnd   = superblockInodeCountStart + superblockInodeCountSize

	superblockUUIDStart = superblockInodeCountEnd
	superblockUUIDSize  = 16
	superblockUUIDEnd   = superblockUUIDStart + superblockUUIDSize
)
