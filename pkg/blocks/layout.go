package blocks

import (
	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Layout describes where the metadata regions live. All of them precede the
// first data block:
//
//	| superblock | block bitmap | inode bitmap | pad | inode table | pad |
type Layout struct {
	BlockBitmapOffset Byte  `json:"blockBitmapOffset"`
	InodeBitmapOffset Byte  `json:"inodeBitmapOffset"`
	InodeTableOffset  Byte  `json:"inodeTableOffset"`
	InodeTableEnd     Byte  `json:"inodeTableEnd"`
	ReservedBlocks    Block `json:"reservedBlocks"`
}

func NewLayout(blockCount Block, inodeCount Ino) Layout {
	blockBitmapOffset := SuperblockSize
	inodeBitmapOffset := blockBitmapOffset + bitmapSize(uint64(blockCount))
	inodeTableOffset := math.AlignUp(
		inodeBitmapOffset+bitmapSize(uint64(inodeCount)),
		8,
	)
	inodeTableEnd := inodeTableOffset + Byte(inodeCount)*InodeSize
	return Layout{
		BlockBitmapOffset: blockBitmapOffset,
		InodeBitmapOffset: inodeBitmapOffset,
		InodeTableOffset:  inodeTableOffset,
		InodeTableEnd:     inodeTableEnd,
		ReservedBlocks:    Block(math.DivRoundUp(inodeTableEnd, BlockSize)),
	}
}

func bitmapSize(bits uint64) Byte {
	return Byte(math.DivRoundUp(bits, 8))
}
