package indirect

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

type Writer struct {
	writeAt io.WriteAt
}

func NewWriter(inner io.WriteAt) Writer {
	return Writer{inner}
}

func (w Writer) WriteIndirect(indirect Block, index Block, target Block) error {
	buf := new([BlockPointerSize]byte)
	encode.EncodeBlock(target, buf)
	if err := w.writeAt.WriteAt(offset(indirect, index), buf[:]); err != nil {
		return fmt.Errorf(
			"writing target block `%d` to indirect block `%d` at index `%d`: %w",
			target,
			indirect,
			index,
			err,
		)
	}
	return nil
}
