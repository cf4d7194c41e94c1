package types

import "fmt"

type Ino uint64

const (
	InodeSize Byte = 40
	InoRoot   Ino  = 0
)

type Mode uint32

const (
	ModeTypeMask Mode = 0o170000
	ModeDir      Mode = 0o040000
	ModeRegular  Mode = 0o100000
	ModePermMask Mode = 0o007777
)

func (m Mode) IsDir() bool { return m&ModeTypeMask == ModeDir }

func (m Mode) IsRegular() bool { return m&ModeTypeMask == ModeRegular }

func (m Mode) String() string {
	t := '-'
	if m.IsDir() {
		t = 'd'
	}
	return fmt.Sprintf("%c%04o", t, m&ModePermMask)
}

type Inode struct {
	Ino      Ino
	Refs     uint32
	Mode     Mode
	Size     Byte
	Pointers [DirectBlocksCount]Block
	Indirect Block
}

type InodeStore interface {
	Put(inode *Inode) error
	Get(ino Ino, output *Inode) error
}

type Stat struct {
	Ino       Ino    `json:"ino"`
	LinkCount uint32 `json:"linkCount"`
	Mode      Mode   `json:"mode"`
	Size      Byte   `json:"size"`
}
