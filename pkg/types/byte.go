package types

type Byte int64

const (
	KiB Byte = 1024
	MiB Byte = 1024 * KiB
)
