package types

import "github.com/google/uuid"

const (
	SuperblockSize  Byte   = 64
	SuperblockMagic uint64 = 0x626c6b6673000001
)

type Superblock struct {
	BlockSize  Byte      `json:"blockSize"`
	BlockCount Block     `json:"blockCount"`
	InodeCount Ino       `json:"inodeCount"`
	UUID       uuid.UUID `json:"uuid"`
}
