package directory

import (
	"fmt"

	"github.com/weberc2/blockfs/pkg/encode"
	"github.com/weberc2/blockfs/pkg/inode"
	. "github.com/weberc2/blockfs/pkg/types"
)

type FileSystem = inode.FileSystem

// entryCount is the number of slots, allocated or not, the directory has
// ever used. It is the only bound on scans of the entry array.
func entryCount(dir *Inode) Byte {
	return dir.Size / DirEntrySize
}

func readEntry(fs *FileSystem, dir *Inode, slot Byte, out *DirEntry) error {
	var buf [DirEntrySize]byte
	if err := fs.Blocks.ReadAt(
		dir.Pointers[0],
		slot*DirEntrySize,
		buf[:],
	); err != nil {
		return fmt.Errorf(
			"reading entry `%d` of directory `%d`: %w",
			slot,
			dir.Ino,
			err,
		)
	}
	encode.DecodeDirEntry(out, &buf)
	return nil
}

func writeEntry(fs *FileSystem, dir *Inode, slot Byte, entry *DirEntry) error {
	var buf [DirEntrySize]byte
	encode.EncodeDirEntry(entry, &buf)
	if err := fs.Blocks.WriteAt(
		dir.Pointers[0],
		slot*DirEntrySize,
		buf[:],
	); err != nil {
		return fmt.Errorf(
			"writing entry `%d` of directory `%d`: %w",
			slot,
			dir.Ino,
			err,
		)
	}
	return nil
}

// find returns the slot of the allocated entry called `name`, or -1.
func find(fs *FileSystem, dir *Inode, name string, out *DirEntry) (Byte, error) {
	for slot := Byte(0); slot < entryCount(dir); slot++ {
		if err := readEntry(fs, dir, slot, out); err != nil {
			return -1, err
		}
		if out.Allocated && out.Name == name {
			return slot, nil
		}
	}
	return -1, nil
}

// Entries returns the allocated entries in slot order.
func Entries(fs *FileSystem, dir *Inode) ([]DirEntry, error) {
	if !dir.Mode.IsDir() {
		return nil, fmt.Errorf(
			"reading entries of inode `%d`: %w",
			dir.Ino,
			NotADirErr,
		)
	}
	var entries []DirEntry
	var entry DirEntry
	for slot := Byte(0); slot < entryCount(dir); slot++ {
		if err := readEntry(fs, dir, slot, &entry); err != nil {
			return nil, err
		}
		if entry.Allocated {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
