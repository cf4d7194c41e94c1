package encode

import (
	. "github.com/weberc2/blockfs/pkg/types"
)

func EncodeBlock(b Block, p *[BlockPointerSize]byte) {
	putBlock(p[:], 0, b)
}

func DecodeBlock(p *[BlockPointerSize]byte) Block {
	return getBlock(p[:], 0)
}
