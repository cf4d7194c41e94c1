package types

const (
	DirEntrySize Byte = 64
	NameMax      Byte = 48

	// DirCapacity is the number of entries that fit in a directory's single
	// entry block.
	DirCapacity Byte = BlockSize / DirEntrySize
)

type DirEntry struct {
	Name      string
	Ino       Ino
	Allocated bool
}
