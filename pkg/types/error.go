package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	NotFoundErr      ConstError = "not found"
	AlreadyExistsErr ConstError = "already exists"
	NoSpaceErr       ConstError = "no space left on volume"
	NameTooLongErr   ConstError = "name too long"
	DirectoryFullErr ConstError = "directory full"
	IsADirErr        ConstError = "is a directory"
	DirNotEmptyErr   ConstError = "directory not empty"
	FileTooLargeErr  ConstError = "file too large"
	BadMagicErr      ConstError = "bad magic number"
)

// These are distinct sentinels that also match the broader kind they refine,
// e.g. `errors.Is(err, NoSpaceErr)` holds for `OutOfBlocksErr`.
var (
	ParentNotFoundErr error = &refinedErr{"parent directory not found", NotFoundErr}
	NotADirErr        error = &refinedErr{"not a directory", NotFoundErr}
	OutOfBlocksErr    error = &refinedErr{"out of blocks", NoSpaceErr}
	OutOfInodesErr    error = &refinedErr{"out of inodes", NoSpaceErr}
)

type refinedErr struct {
	message string
	kind    ConstError
}

func (err *refinedErr) Error() string { return err.message }

func (err *refinedErr) Unwrap() error { return err.kind }
