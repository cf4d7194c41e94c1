package storage

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/directory"
	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Truncate grows or shrinks the file at `path` to `size` bytes.
func (s *Storage) Truncate(path string, size Byte) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() { s.log("truncate", err, "path", path, "size", size) }()

	var file Inode
	if err := s.resolveFile(path, &file); err != nil {
		return fmt.Errorf("truncating `%s`: %w", path, err)
	}
	if size < 0 {
		return fmt.Errorf(
			"truncating `%s` to `%d` bytes: %w",
			path,
			size,
			InvalidArgumentErr,
		)
	}
	if err := inode.Truncate(s.fs, &file, size); err != nil {
		return fmt.Errorf("truncating `%s`: %w", path, err)
	}
	return s.flush("truncating `" + path + "`")
}

// Read fills `p` from the file at `path` starting at `offset`. Reads stop at
// the end of the file, so fewer than `len(p)` bytes may be returned; none
// are returned when `offset` is at or past the end.
func (s *Storage) Read(path string, p []byte, offset Byte) (n Byte, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() {
		s.log("read", err, "path", path, "offset", offset, "size", len(p), "read", n)
	}()

	var file Inode
	if err := s.resolveFile(path, &file); err != nil {
		return 0, fmt.Errorf("reading `%s`: %w", path, err)
	}
	if offset < 0 {
		return 0, fmt.Errorf(
			"reading `%s` at offset `%d`: %w",
			path,
			offset,
			InvalidArgumentErr,
		)
	}
	n, err = inode.ReadAt(s.fs, &file, offset, p)
	if err != nil {
		return n, fmt.Errorf("reading `%s`: %w", path, err)
	}
	return n, nil
}

// Write copies `data` into the file at `path` at `offset`, extending the
// file when the write ends past its current size.
func (s *Storage) Write(path string, data []byte, offset Byte) (n Byte, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	defer func() {
		s.log("write", err, "path", path, "offset", offset, "size", len(data), "written", n)
	}()

	var file Inode
	if err := s.resolveFile(path, &file); err != nil {
		return 0, fmt.Errorf("writing `%s`: %w", path, err)
	}
	if offset < 0 {
		return 0, fmt.Errorf(
			"writing `%s` at offset `%d`: %w",
			path,
			offset,
			InvalidArgumentErr,
		)
	}
	n, err = inode.WriteAt(s.fs, &file, offset, data)
	if err != nil {
		// a failed grow leaves nothing to flush, but a partial write may
		// have already extended the file
		if flushErr := s.fs.Flush(); flushErr != nil {
			err = fmt.Errorf("%w (flushing: %v)", err, flushErr)
		}
		return n, fmt.Errorf("writing `%s`: %w", path, err)
	}
	return n, s.flush("writing `" + path + "`")
}

func (s *Storage) resolveFile(path string, out *Inode) error {
	if err := directory.ResolveInode(s.fs, path, out); err != nil {
		return err
	}
	if out.Mode.IsDir() {
		return fmt.Errorf("inode `%d`: %w", out.Ino, IsADirErr)
	}
	return nil
}
