package store

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

var _ InodeStore = VolumeInodeStore{}

// VolumeInodeStore reads and writes inode records in an inode table that
// starts at offset 0 of `volume`.
type VolumeInodeStore struct {
	volume io.Volume
	count  Ino
}

func NewVolumeInodeStore(volume io.Volume, count Ino) VolumeInodeStore {
	return VolumeInodeStore{volume, count}
}

func (store VolumeInodeStore) Put(inode *Inode) error {
	if inode.Ino >= store.count {
		return fmt.Errorf(
			"writing inode `%d`: inode table holds `%d` inodes: %w",
			inode.Ino,
			store.count,
			NotFoundErr,
		)
	}
	buf := new([InodeSize]byte)
	encode.EncodeInode(inode, buf)
	offset := Byte(inode.Ino) * InodeSize
	if err := store.volume.WriteAt(offset, buf[:]); err != nil {
		return fmt.Errorf(
			"writing inode `%d` to volume at offset `%d`: %w",
			inode.Ino,
			offset,
			err,
		)
	}
	return nil
}

func (store VolumeInodeStore) Get(ino Ino, output *Inode) error {
	if ino >= store.count {
		return fmt.Errorf(
			"reading inode `%d`: inode table holds `%d` inodes: %w",
			ino,
			store.count,
			NotFoundErr,
		)
	}
	buf := new([InodeSize]byte)
	offset := Byte(ino) * InodeSize
	if err := store.volume.ReadAt(offset, buf[:]); err != nil {
		return fmt.Errorf(
			"reading inode `%d` from volume at offset `%d`: %w",
			ino,
			offset,
			err,
		)
	}
	encode.DecodeInode(output, buf)
	output.Ino = ino
	return nil
}
