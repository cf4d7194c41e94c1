package io

import (
	"errors"
	"fmt"
	"io"
	"os"

	. "github.com/weberc2/blockfs/pkg/types"
)

var _ Volume = (*File)(nil)

// File is a volume backed by an image file on the host filesystem.
type File struct {
	file *os.File
}

// OpenFile opens the image at `path`, creating it and extending it to `size`
// bytes when it is shorter.
func OpenFile(path string, size Byte) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening image file `%s`: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening image file `%s`: %w", path, err)
	}
	if Byte(info.Size()) < size {
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf(
				"opening image file `%s`: extending to `%d` bytes: %w",
				path,
				size,
				err,
			)
		}
	}
	return &File{f}, nil
}

func (f *File) ReadAt(offset Byte, p []byte) error {
	if _, err := f.file.ReadAt(p, int64(offset)); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf(
			"reading `%d` bytes from `%s` at offset `%d`: %w",
			len(p),
			f.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (f *File) WriteAt(offset Byte, p []byte) error {
	if _, err := f.file.WriteAt(p, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to `%s` at offset `%d`: %w",
			len(p),
			f.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (f *File) Sync() error { return f.file.Sync() }

func (f *File) Close() error { return f.file.Close() }
