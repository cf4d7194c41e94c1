// Package boltvolume stores a volume in a bbolt database, one key per block.
// Blocks that were never written read back as zeroes, so a sparse volume
// costs only the blocks it uses.
package boltvolume

import (
	"encoding/binary"
	"fmt"
	"io"

	blockio "github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	blocksBucket = []byte("blocks")
	metaBucket   = []byte("meta")
	sizeKey      = []byte("size")

	_ blockio.Volume = (*Volume)(nil)
)

type Volume struct {
	db   *bolt.DB
	size Byte
}

// Open opens (or creates) the database at `path`. A new database records
// `size` as the volume size; an existing one keeps the size it was created
// with.
func Open(path string, size Byte) (*Volume, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt volume `%s`: %w", path, err)
	}

	v := Volume{db: db, size: size}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return err
		}
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		if data := meta.Get(sizeKey); data != nil {
			v.size = Byte(binary.BigEndian.Uint64(data))
			return nil
		}
		return meta.Put(sizeKey, uint64Bytes(uint64(size)))
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening bolt volume `%s`: %w", path, err)
	}
	return &v, nil
}

func (v *Volume) Size() Byte { return v.size }

func (v *Volume) ReadAt(offset Byte, p []byte) error {
	if err := v.bounds(offset, p); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	if err := v.db.View(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		return chunks(offset, p, func(b Block, at Byte, chunk []byte) error {
			data := blocks.Get(blockKey(b))
			if data == nil {
				clear(chunk)
				return nil
			}
			copy(chunk, data[at:])
			return nil
		})
	}); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	return nil
}

// WriteAt updates every touched block in a single transaction.
func (v *Volume) WriteAt(offset Byte, p []byte) error {
	if err := v.bounds(offset, p); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	if err := v.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(blocksBucket)
		return chunks(offset, p, func(b Block, at Byte, chunk []byte) error {
			key := blockKey(b)
			data := make([]byte, BlockSize)
			copy(data, blocks.Get(key))
			copy(data[at:], chunk)
			return blocks.Put(key, data)
		})
	}); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	return nil
}

func (v *Volume) Sync() error { return v.db.Sync() }

func (v *Volume) Close() error { return v.db.Close() }

func (v *Volume) bounds(offset Byte, p []byte) error {
	if offset < 0 || offset+Byte(len(p)) > v.size {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// chunks calls `f` once per block overlapped by `p` at `offset`, passing the
// offset within the block and the matching slice of `p`.
func chunks(
	offset Byte,
	p []byte,
	f func(b Block, at Byte, chunk []byte) error,
) error {
	var begin Byte
	for begin < Byte(len(p)) {
		at := (offset + begin) % BlockSize
		length := min(Byte(len(p))-begin, BlockSize-at)
		b := Block((offset + begin) / BlockSize)
		if err := f(b, at, p[begin:begin+length]); err != nil {
			return fmt.Errorf("block `%d`: %w", b, err)
		}
		begin += length
	}
	return nil
}

// big-endian so that bbolt iterates blocks in order
func blockKey(b Block) []byte { return uint64Bytes(uint64(b)) }

func uint64Bytes(x uint64) []byte {
	var data [8]byte
	binary.BigEndian.PutUint64(data[:], x)
	return data[:]
}
