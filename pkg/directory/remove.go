package directory

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

// Remove drops the entry called `name` and releases one reference to its
// inode, freeing the inode when no references remain. The slot is left in
// place for reuse.
func Remove(fs *FileSystem, dir *Inode, name string) error {
	if !dir.Mode.IsDir() {
		return fmt.Errorf(
			"removing `%s` from inode `%d`: %w",
			name,
			dir.Ino,
			NotADirErr,
		)
	}

	var entry DirEntry
	slot, err := find(fs, dir, name, &entry)
	if err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	if slot < 0 {
		return fmt.Errorf(
			"removing `%s` from directory `%d`: %w",
			name,
			dir.Ino,
			NotFoundErr,
		)
	}

	var target Inode
	if err := inode.Get(fs, entry.Ino, &target); err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	if target.Refs > 0 {
		target.Refs--
	}
	if target.Refs == 0 {
		err = inode.Free(fs, &target)
	} else {
		err = fs.InodeStore.Put(&target)
	}
	if err != nil {
		return fmt.Errorf("removing `%s`: releasing inode `%d`: %w", name, entry.Ino, err)
	}

	entry.Allocated = false
	if err := writeEntry(fs, dir, slot, &entry); err != nil {
		return fmt.Errorf("removing `%s`: %w", name, err)
	}
	return nil
}
