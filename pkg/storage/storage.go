package storage

import (
	"fmt"
	stdio "io"
	"log/slog"
	"sync"

	"github.com/weberc2/blockfs/pkg/blocks"
	"github.com/weberc2/blockfs/pkg/directory"
	"github.com/weberc2/blockfs/pkg/inode"
	"github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

const InvalidArgumentErr ConstError = "invalid argument"

type Params struct {
	Volume        io.Volume
	BlockCount    Block
	InodeCount    Ino
	CacheCapacity int
	Logger        *slog.Logger
}

// Storage is a filesystem instance. Its methods are safe for concurrent use;
// each runs to completion under a single lock and flushes its changes to the
// volume before returning.
type Storage struct {
	mutex  sync.Mutex
	fs     *inode.FileSystem
	volume io.Volume
	logger *slog.Logger
}

// Init opens the filesystem on `params.Volume`. A volume without a
// superblock is formatted and given an empty root directory; the block and
// inode counts only matter in that case.
func Init(params *Params) (*Storage, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	blockCount := params.BlockCount
	if blockCount == 0 {
		blockCount = blocks.DefaultBlockCount
	}
	inodeCount := params.InodeCount
	if inodeCount == 0 {
		inodeCount = blocks.DefaultInodeCount
	}

	store, formatted, err := blocks.Open(
		params.Volume,
		&blocks.Params{BlockCount: blockCount, InodeCount: inodeCount},
	)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}

	fs := inode.New(store, params.CacheCapacity)
	if formatted {
		if err := directory.InitRoot(fs); err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
		if err := fs.Flush(); err != nil {
			return nil, fmt.Errorf("initializing storage: %w", err)
		}
	}

	logger.Info(
		"initialized storage",
		"formatted", formatted,
		"uuid", store.Superblock.UUID.String(),
		"blocks", store.Superblock.BlockCount,
		"inodes", store.Superblock.InodeCount,
		"freeBlocks", store.FreeBlocks(),
	)
	return &Storage{fs: fs, volume: params.Volume, logger: logger}, nil
}

func (s *Storage) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fs.Flush()
}

// Close flushes and, if the volume can be closed, closes it.
func (s *Storage) Close() error {
	if err := s.Flush(); err != nil {
		return fmt.Errorf("closing storage: %w", err)
	}
	if closer, ok := s.volume.(stdio.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing storage: %w", err)
		}
	}
	return nil
}

// Superblock describes the volume's geometry.
func (s *Storage) Superblock() Superblock {
	return s.fs.Blocks.Superblock
}

// FreeBlocks is the number of unallocated blocks.
func (s *Storage) FreeBlocks() Block {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.fs.Blocks.FreeBlocks()
}

func (s *Storage) flush(op string) error {
	if err := s.fs.Flush(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) log(op string, err error, args ...any) {
	if err != nil {
		s.logger.Debug(op, append(args, "err", err.Error())...)
		return
	}
	s.logger.Debug(op, args...)
}
