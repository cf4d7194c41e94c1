package directory

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// List returns the names in the directory at `path`, in slot order.
func List(fs *FileSystem, path string) ([]string, error) {
	var dir Inode
	if err := ResolveInode(fs, path, &dir); err != nil {
		return nil, fmt.Errorf("listing `%s`: %w", path, err)
	}
	entries, err := Entries(fs, &dir)
	if err != nil {
		return nil, fmt.Errorf("listing `%s`: %w", path, err)
	}
	names := make([]string, len(entries))
	for i := range entries {
		names[i] = entries[i].Name
	}
	return names, nil
}

// InitRoot creates the root directory on a freshly formatted volume.
func InitRoot(fs *FileSystem) error {
	var root Inode
	if err := inode.Alloc(fs, &root); err != nil {
		return fmt.Errorf("creating root directory: %w", err)
	}
	if root.Ino != InoRoot {
		panic(fmt.Sprintf(
			"creating root directory: wanted ino `%d`; allocated `%d`",
			InoRoot,
			root.Ino,
		))
	}
	root.Mode = ModeDir | 0755
	if err := fs.InodeStore.Put(&root); err != nil {
		return fmt.Errorf("creating root directory: %w", err)
	}
	return nil
}
