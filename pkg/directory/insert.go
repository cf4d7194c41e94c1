package directory

import (
	"fmt"

	. "github.com/weberc2/blockfs/pkg/types"
)

// Insert adds an entry to `dir`, reusing the first free slot before
// appending. It leaves the target inode's `refs` alone and does not check
// for an existing entry with the same name.
func Insert(fs *FileSystem, dir *Inode, name string, ino Ino) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("inserting `%s` into directory `%d`: %w", name, dir.Ino, err)
	}
	if !dir.Mode.IsDir() {
		return fmt.Errorf(
			"inserting `%s` into inode `%d`: %w",
			name,
			dir.Ino,
			NotADirErr,
		)
	}

	count := entryCount(dir)
	slot := count
	var entry DirEntry
	for i := Byte(0); i < count; i++ {
		if err := readEntry(fs, dir, i, &entry); err != nil {
			return fmt.Errorf("inserting `%s`: %w", name, err)
		}
		if !entry.Allocated {
			slot = i
			break
		}
	}
	if slot >= DirCapacity {
		return fmt.Errorf(
			"inserting `%s` into directory `%d`: `%d` entries: %w",
			name,
			dir.Ino,
			count,
			DirectoryFullErr,
		)
	}

	entry = DirEntry{Name: name, Ino: ino, Allocated: true}
	if err := writeEntry(fs, dir, slot, &entry); err != nil {
		return fmt.Errorf("inserting `%s`: %w", name, err)
	}

	if slot == count {
		clone := *dir
		clone.Size += DirEntrySize
		if err := fs.InodeStore.Put(&clone); err != nil {
			return fmt.Errorf(
				"inserting `%s` into directory `%d`: updating size: %w",
				name,
				dir.Ino,
				err,
			)
		}
		*dir = clone
	}
	return nil
}
