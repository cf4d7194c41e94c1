package indirect

import (
	"encoding/binary"
	"testing"

	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

func TestReadWriter(t *testing.T) {
	volume := io.NewBuffer(make([]byte, 4*BlockSize))
	rw := NewReadWriter(volume)

	if err := rw.WriteIndirect(2, 5, 3); err != nil {
		t.Fatalf("WriteIndirect(): unexpected err: %v", err)
	}

	raw := volume.Bytes()[2*BlockSize+5*BlockPointerSize:]
	if found := binary.LittleEndian.Uint64(raw); found != 3 {
		t.Fatalf("raw pointer: wanted `3`; found `%d`", found)
	}

	found, err := rw.ReadIndirect(2, 5)
	if err != nil {
		t.Fatalf("ReadIndirect(): unexpected err: %v", err)
	}
	if found != 3 {
		t.Fatalf("ReadIndirect(): wanted `3`; found `%d`", found)
	}

	if found, err := rw.ReadIndirect(2, 6); err != nil || found != BlockNil {
		t.Fatalf(
			"ReadIndirect(): wanted `%d`, nil; found `%d`, `%v`",
			BlockNil,
			found,
			err,
		)
	}
}

func TestReadIndirect_PastCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("ReadIndirect(): wanted panic for index past capacity")
		}
	}()
	volume := io.NewBuffer(make([]byte, 4*BlockSize))
	_, _ = NewReader(volume).ReadIndirect(2, IndirectCapacity)
}
