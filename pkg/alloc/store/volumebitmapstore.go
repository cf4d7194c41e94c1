package store

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/alloc"
	"github.com/weberc2/blockfs/pkg/io"
	"github.com/weberc2/blockfs/pkg/math"
	. "github.com/weberc2/blockfs/pkg/types"
)

var _ alloc.BitmapStore = VolumeBitmapStore{}

// VolumeBitmapStore persists a bitmap at the start of `volume`, byte `i` of
// the bitmap at offset `i`. Callers place it with an `io.OffsetVolume`.
type VolumeBitmapStore struct {
	volume io.Volume
}

func NewVolumeBitmapStore(volume io.Volume) VolumeBitmapStore {
	return VolumeBitmapStore{volume}
}

func (store VolumeBitmapStore) PutRange(
	bitmap alloc.Bitmap,
	from uint64,
	to uint64,
) error {
	if err := store.volume.WriteAt(
		Byte(from),
		bitmap.Bytes()[from:to],
	); err != nil {
		return fmt.Errorf("storing bitmap bytes `[%d, %d)`: %w", from, to, err)
	}
	return nil
}

func (store VolumeBitmapStore) Get(bits uint64) (alloc.Bitmap, error) {
	data := make([]byte, math.DivRoundUp(bits, 8))
	if err := store.volume.ReadAt(0, data); err != nil {
		return alloc.Bitmap{}, fmt.Errorf(
			"loading bitmap of `%d` bits: %w",
			bits,
			err,
		)
	}
	return alloc.FromBytes(data, bits), nil
}
