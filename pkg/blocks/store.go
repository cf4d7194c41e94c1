package blocks

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/weberc2/blockfs/pkg/alloc"
	allocstore "github.com/weberc2/blockfs/pkg/alloc/store"
	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

const (
	DefaultBlockCount Block = 256
	DefaultInodeCount Ino   = 256
)

type Params struct {
	BlockCount Block
	InodeCount Ino
}

// Store hands out fixed-size blocks of a volume and owns the block and inode
// bitmaps.
type Store struct {
	Volume     io.Volume
	Superblock Superblock
	Layout     Layout

	blocks alloc.BlockAllocator
	inodes alloc.InoAllocator

	blockBitmap *alloc.FlushableBitmap
	inodeBitmap *alloc.FlushableBitmap
}

// Open loads the store from `volume`, formatting the volume with `params`
// first if it doesn't carry a superblock yet. The returned bool reports
// whether the volume was formatted.
func Open(volume io.Volume, params *Params) (*Store, bool, error) {
	s, err := Load(volume)
	if err == nil {
		return s, false, nil
	}
	if !errors.Is(err, BadMagicErr) {
		return nil, false, err
	}
	if s, err = Format(volume, params); err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func Format(volume io.Volume, params *Params) (*Store, error) {
	sb := Superblock{
		BlockSize:  BlockSize,
		BlockCount: params.BlockCount,
		InodeCount: params.InodeCount,
		UUID:       uuid.New(),
	}
	layout := NewLayout(sb.BlockCount, sb.InodeCount)
	if sb.InodeCount < 1 || sb.BlockCount <= layout.ReservedBlocks {
		return nil, fmt.Errorf(
			"formatting volume with `%d` blocks and `%d` inodes: metadata "+
				"needs `%d` blocks: %w",
			sb.BlockCount,
			sb.InodeCount,
			layout.ReservedBlocks,
			NoSpaceErr,
		)
	}

	// wipe whatever the metadata region held before
	zeros := make([]byte, BlockSize)
	for b := Block(0); b < layout.ReservedBlocks; b++ {
		if err := volume.WriteAt(Byte(b)*BlockSize, zeros); err != nil {
			return nil, fmt.Errorf(
				"formatting volume: zeroing metadata block `%d`: %w",
				b,
				err,
			)
		}
	}

	s := newStore(
		volume,
		sb,
		layout,
		alloc.New(uint64(sb.BlockCount)),
		alloc.New(uint64(sb.InodeCount)),
	)
	for b := Block(0); b < layout.ReservedBlocks; b++ {
		s.blocks.Reserve(b)
	}

	if err := s.writeSuperblock(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}
	if err := s.Flush(); err != nil {
		return nil, fmt.Errorf("formatting volume: %w", err)
	}
	return s, nil
}

func Load(volume io.Volume) (*Store, error) {
	var buf [SuperblockSize]byte
	if err := volume.ReadAt(0, buf[:]); err != nil {
		return nil, fmt.Errorf("loading block store: %w", err)
	}
	var sb Superblock
	if err := encode.DecodeSuperblock(&sb, &buf); err != nil {
		return nil, fmt.Errorf("loading block store: %w", err)
	}
	if sb.BlockSize != BlockSize {
		return nil, fmt.Errorf(
			"loading block store: unsupported block size `%d`",
			sb.BlockSize,
		)
	}

	layout := NewLayout(sb.BlockCount, sb.InodeCount)
	blockBitmap, err := allocstore.NewVolumeBitmapStore(
		io.NewOffsetVolume(volume, layout.BlockBitmapOffset),
	).Get(uint64(sb.BlockCount))
	if err != nil {
		return nil, fmt.Errorf("loading block bitmap: %w", err)
	}
	inodeBitmap, err := allocstore.NewVolumeBitmapStore(
		io.NewOffsetVolume(volume, layout.InodeBitmapOffset),
	).Get(uint64(sb.InodeCount))
	if err != nil {
		return nil, fmt.Errorf("loading inode bitmap: %w", err)
	}

	return newStore(volume, sb, layout, blockBitmap, inodeBitmap), nil
}

func newStore(
	volume io.Volume,
	sb Superblock,
	layout Layout,
	blockBitmap alloc.Bitmap,
	inodeBitmap alloc.Bitmap,
) *Store {
	s := Store{
		Volume:     volume,
		Superblock: sb,
		Layout:     layout,
		blockBitmap: alloc.NewFlushable(
			blockBitmap,
			allocstore.NewVolumeBitmapStore(
				io.NewOffsetVolume(volume, layout.BlockBitmapOffset),
			),
		),
		inodeBitmap: alloc.NewFlushable(
			inodeBitmap,
			allocstore.NewVolumeBitmapStore(
				io.NewOffsetVolume(volume, layout.InodeBitmapOffset),
			),
		),
	}
	s.blocks = alloc.BlockAllocator{Allocator: s.blockBitmap}
	s.inodes = alloc.InoAllocator{Allocator: s.inodeBitmap}
	return &s
}

// Alloc returns a zeroed block.
func (s *Store) Alloc() (Block, error) {
	b, ok := s.blocks.Alloc()
	if !ok {
		return BlockNil, OutOfBlocksErr
	}
	if err := s.Zero(b, 0, BlockSize); err != nil {
		s.blocks.Free(b)
		return BlockNil, fmt.Errorf("allocating block `%d`: %w", b, err)
	}
	return b, nil
}

func (s *Store) Free(b Block) {
	if b < s.Layout.ReservedBlocks || b >= s.Superblock.BlockCount {
		panic(fmt.Sprintf("freeing block `%d`: not a data block", b))
	}
	s.blocks.Free(b)
}

func (s *Store) Allocated(b Block) bool { return s.blockBitmap.Get(uint64(b)) }

func (s *Store) FreeBlocks() Block { return s.blocks.FreeBlocks() }

func (s *Store) ReadAt(b Block, offset Byte, p []byte) error {
	if err := s.Volume.ReadAt(Byte(b)*BlockSize+offset, p); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from block `%d` at offset `%d`: %w",
			len(p),
			b,
			offset,
			err,
		)
	}
	return nil
}

func (s *Store) WriteAt(b Block, offset Byte, p []byte) error {
	if err := s.Volume.WriteAt(Byte(b)*BlockSize+offset, p); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to block `%d` at offset `%d`: %w",
			len(p),
			b,
			offset,
			err,
		)
	}
	return nil
}

func (s *Store) Zero(b Block, offset, length Byte) error {
	return s.WriteAt(b, offset, make([]byte, length))
}

func (s *Store) Inodes() alloc.InoAllocator { return s.inodes }

// InodeTable is the region of the volume holding the inode records.
func (s *Store) InodeTable() io.Volume {
	return io.NewOffsetVolume(s.Volume, s.Layout.InodeTableOffset)
}

func (s *Store) Flush() error {
	if err := s.blockBitmap.Flush(); err != nil {
		return fmt.Errorf("flushing block bitmap: %w", err)
	}
	if err := s.inodeBitmap.Flush(); err != nil {
		return fmt.Errorf("flushing inode bitmap: %w", err)
	}
	return nil
}

func (s *Store) writeSuperblock() error {
	var buf [SuperblockSize]byte
	encode.EncodeSuperblock(&s.Superblock, &buf)
	if err := s.Volume.WriteAt(0, buf[:]); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return nil
}
