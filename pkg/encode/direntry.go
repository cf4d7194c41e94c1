package encode

import (
	"bytes"

	. "github.com/weberc2/blockfs/pkg/types"
)

// EncodeDirEntry writes the entry into a fixed-size record. Callers are
// responsible for rejecting names longer than `NameMax`; longer names are
// cut off here.
func EncodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	for i := range name {
		name[i] = 0
	}
	copy(name, entry.Name)
	putIno(p, dirEntryInoStart, entry.Ino)
	var allocated uint8
	if entry.Allocated {
		allocated = 1
	}
	putU8(p, dirEntryAllocatedStart, allocated)
	for i := dirEntryAllocatedEnd; i < DirEntrySize; i++ {
		p[i] = 0
	}
}

func DecodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	entry.Name = string(name)
	entry.Ino = getIno(p, dirEntryInoStart)
	entry.Allocated = getU8(p, dirEntryAllocatedStart) != 0
}

const (
	dirEntryNameStart = 0
	dirEntryNameSize  = NameMax
	dirEntryNameEnd   = dirEntryNameStart + dirEntryNameSize

	dirEntryInoStart = dirEntryNameEnd
	dirEntryInoSize  = 8
	dirEntryInoEnd   = dirEntryInoStart + dirEntryInoSize

	dirEntryAllocatedStart = dirEntryInoEnd
	dirEntryAllocatedSize  = 1
	dirEntryAllocatedEnd   = dirEntryAllocatedStart + dirEntryAllocatedSize
)
