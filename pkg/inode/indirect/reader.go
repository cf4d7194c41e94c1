package indirect

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

type Reader struct {
	readAt io.ReadAt
}

func NewReader(inner io.ReadAt) Reader {
	return Reader{inner}
}

// ReadIndirect returns the block stored at `index` of the indirect block.
func (r Reader) ReadIndirect(indirect Block, index Block) (Block, error) {
	buf := new([BlockPointerSize]byte)
	if err := r.readAt.ReadAt(offset(indirect, index), buf[:]); err != nil {
		return BlockNil, fmt.Errorf(
			"reading indirect block `%d` at index `%d`: %w",
			indirect,
			index,
			err,
		)
	}
	return encode.DecodeBlock(buf), nil
}
