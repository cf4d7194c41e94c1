package directory

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Lookup finds `name` in `dir`. The empty name is the root.
func Lookup(fs *FileSystem, dir *Inode, name string) (Ino, error) {
	if name == "" {
		return InoRoot, nil
	}
	if !dir.Mode.IsDir() {
		return 0, fmt.Errorf(
			"looking up `%s` in inode `%d`: %w",
			name,
			dir.Ino,
			NotADirErr,
		)
	}

	var entry DirEntry
	slot, err := find(fs, dir, name, &entry)
	if err != nil {
		return 0, fmt.Errorf(
			"looking up `%s` in directory `%d`: %w",
			name,
			dir.Ino,
			err,
		)
	}
	if slot < 0 {
		return 0, fmt.Errorf(
			"looking up `%s` in directory `%d`: %w",
			name,
			dir.Ino,
			NotFoundErr,
		)
	}
	return entry.Ino, nil
}

// ResolvePath walks `path` from the root one component at a time.
func ResolvePath(fs *FileSystem, path string) (Ino, error) {
	ino := InoRoot
	var dir Inode
	for _, component := range Components(path) {
		if err := inode.Get(fs, ino, &dir); err != nil {
			return 0, fmt.Errorf("resolving path `%s`: %w", path, err)
		}
		next, err := Lookup(fs, &dir, component)
		if err != nil {
			return 0, fmt.Errorf("resolving path `%s`: %w", path, err)
		}
		ino = next
	}
	return ino, nil
}

// ResolveInode resolves `path` and fetches its inode.
func ResolveInode(fs *FileSystem, path string, out *Inode) error {
	ino, err := ResolvePath(fs, path)
	if err != nil {
		return err
	}
	if err := inode.Get(fs, ino, out); err != nil {
		return fmt.Errorf("resolving path `%s`: %w", path, err)
	}
	return nil
}
