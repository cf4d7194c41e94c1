package storage

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/directory"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Stat reports the link count, mode and size of the inode at `path`. The
// root directory is addressable as "/" (or "").
func (s *Storage) Stat(path string) (stat Stat, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("stat", err, "path", path) }()

	var inode Inode
	if err := directory.ResolveInode(s.fs, path, &inode); err != nil {
		return Stat{}, fmt.Errorf("stat `%s`: %w", path, err)
	}
	return Stat{
		Ino:       inode.Ino,
		LinkCount: inode.Refs,
		Mode:      inode.Mode,
		Size:      inode.Size,
	}, nil
}

// List returns the names of the entries in the directory at `path`.
func (s *Storage) List(path string) (names []string, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("list", err, "path", path, "entries", len(names)) }()

	return directory.List(s.fs, path)
}
