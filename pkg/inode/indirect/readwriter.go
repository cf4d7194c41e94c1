package indirect

import (
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

type ReadWriter struct {
	Reader
	Writer
}

func NewReadWriter(volume io.Volume) ReadWriter {
	return ReadWriter{Reader{volume}, Writer{volume}}
}

var _ interface {
	ReadIndirect(Block, Block) (Block, error)
	WriteIndirect(Block, Block, Block) error
} = ReadWriter{}
