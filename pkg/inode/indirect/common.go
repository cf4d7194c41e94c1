package indirect

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

func offset(indirect Block, index Block) Byte {
	if indirect == BlockNil {
		panic(fmt.Sprintf("addressing index `%d` of the nil block", index))
	}
	if index >= IndirectCapacity {
		panic(fmt.Sprintf(
			"index `%d` exceeds indirect block capacity `%d`",
			index,
			IndirectCapacity,
		))
	}
	startOfBlock := Byte(indirect) * BlockSize
	offsetInBlock := Byte(index) * BlockPointerSize
	return startOfBlock + offsetInBlock
}
