package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	blockio "github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

const fileMode = ModeRegular | 0644

func newStorage(t *testing.T) *Storage {
	return newStorageOn(t, blockio.NewBuffer(make([]byte, 64*BlockSize)))
}

func newStorageOn(t *testing.T, volume blockio.Volume) *Storage {
	s, err := Init(&Params{
		Volume:        volume,
		BlockCount:    64,
		InodeCount:    32,
		CacheCapacity: 4,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Init(): unexpected err: %v", err)
	}
	return s
}

func mknod(t *testing.T, s *Storage, path string) {
	if err := s.Mknod(path, fileMode); err != nil {
		t.Fatalf("Mknod(`%s`): unexpected err: %v", path, err)
	}
}

func write(t *testing.T, s *Storage, path string, data []byte, offset Byte) {
	n, err := s.Write(path, data, offset)
	if err != nil {
		t.Fatalf("Write(`%s`): unexpected err: %v", path, err)
	}
	if n != Byte(len(data)) {
		t.Fatalf("Write(`%s`): wanted `%d` bytes written; found `%d`", path, len(data), n)
	}
}

func read(t *testing.T, s *Storage, path string, size int, offset Byte) []byte {
	buf := make([]byte, size)
	n, err := s.Read(path, buf, offset)
	if err != nil {
		t.Fatalf("Read(`%s`): unexpected err: %v", path, err)
	}
	return buf[:n]
}

func stat(t *testing.T, s *Storage, path string) Stat {
	st, err := s.Stat(path)
	if err != nil {
		t.Fatalf("Stat(`%s`): unexpected err: %v", path, err)
	}
	return st
}

func TestScenario_CreateWriteReadUnlink(t *testing.T) {
	s := newStorage(t)

	mknod(t, s, "/a")
	write(t, s, "/a", []byte("hello"), 0)
	if found := read(t, s, "/a", 5, 0); string(found) != "hello" {
		t.Fatalf("Read(): wanted `hello`; found `%s`", found)
	}
	if size := stat(t, s, "/a").Size; size != 5 {
		t.Fatalf("Stat(): wanted size `5`; found `%d`", size)
	}
	if err := s.Unlink("/a"); err != nil {
		t.Fatalf("Unlink(): unexpected err: %v", err)
	}
	if _, err := s.Stat("/a"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Stat(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
}

func TestScenario_LinkSurvivesUnlink(t *testing.T) {
	s := newStorage(t)

	mknod(t, s, "/a")
	write(t, s, "/a", []byte("shared"), 0)
	if err := s.Link("/a", "/b"); err != nil {
		t.Fatalf("Link(): unexpected err: %v", err)
	}
	if links := stat(t, s, "/b").LinkCount; links != 2 {
		t.Fatalf("Stat(`/b`): wanted link count `2`; found `%d`", links)
	}
	if links := stat(t, s, "/a").LinkCount; links != 2 {
		t.Fatalf("Stat(`/a`): wanted link count `2`; found `%d`", links)
	}

	if err := s.Unlink("/a"); err != nil {
		t.Fatalf("Unlink(): unexpected err: %v", err)
	}
	if found := read(t, s, "/b", 6, 0); string(found) != "shared" {
		t.Fatalf("Read(`/b`): wanted `shared`; found `%s`", found)
	}
	if links := stat(t, s, "/b").LinkCount; links != 1 {
		t.Fatalf("Stat(`/b`): wanted link count `1`; found `%d`", links)
	}
}

func TestReferenceCounting_ReleasesBlocks(t *testing.T) {
	s := newStorage(t)
	free := s.FreeBlocks()

	mknod(t, s, "/a")
	write(t, s, "/a", bytes.Repeat([]byte("x"), int(3*BlockSize)), 0)
	if err := s.Link("/a", "/b"); err != nil {
		t.Fatalf("Link(): unexpected err: %v", err)
	}
	ino := stat(t, s, "/a").Ino

	if err := s.Unlink("/a"); err != nil {
		t.Fatalf("Unlink(`/a`): unexpected err: %v", err)
	}
	if found := s.FreeBlocks(); found == free {
		t.Fatal("Unlink(`/a`): released blocks of a still-linked inode")
	}
	if err := s.Unlink("/b"); err != nil {
		t.Fatalf("Unlink(`/b`): unexpected err: %v", err)
	}
	if found := s.FreeBlocks(); found != free {
		t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", free, found)
	}

	mknod(t, s, "/c")
	if reused := stat(t, s, "/c").Ino; reused != ino {
		t.Fatalf("Mknod(): wanted reused ino `%d`; found `%d`", ino, reused)
	}
}

func TestRoundTrip(t *testing.T) {
	type testCase struct {
		name string
		size int
	}

	testCases := []testCase{
		{name: "empty", size: 0},
		{name: "small", size: 17},
		{name: "one block", size: int(BlockSize)},
		{name: "direct extents", size: int(2*BlockSize) - 3},
		{name: "indirect extents", size: int(5*BlockSize) + 123},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStorage(t)
			input := make([]byte, tc.size)
			for i := range input {
				input[i] = byte(i * 7)
			}
			mknod(t, s, "/f")
			write(t, s, "/f", input, 0)
			if found := read(t, s, "/f", tc.size, 0); !bytes.Equal(found, input) {
				t.Fatalf("Read(): data doesn't match what was written")
			}
		})
	}
}

func TestTruncate_GrowShrinkSymmetry(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/f")
	mknod(t, s, "/other")
	write(t, s, "/other", []byte("untouched"), 0)

	n, m := 3*BlockSize+100, BlockSize+7
	if err := s.Truncate("/f", n); err != nil {
		t.Fatalf("Truncate(): unexpected err: %v", err)
	}
	input := make([]byte, n)
	for i := range input {
		input[i] = byte(i%254 + 1)
	}
	write(t, s, "/f", input, 0)

	if err := s.Truncate("/f", m); err != nil {
		t.Fatalf("Truncate(): unexpected err: %v", err)
	}
	if err := s.Truncate("/f", n); err != nil {
		t.Fatalf("Truncate(): unexpected err: %v", err)
	}
	if size := stat(t, s, "/f").Size; size != n {
		t.Fatalf("Stat(): wanted size `%d`; found `%d`", n, size)
	}
	found := read(t, s, "/f", int(n), 0)
	if !bytes.Equal(found[:m], input[:m]) {
		t.Fatal("Read(): bytes below the shrunk size were not preserved")
	}
	if found := read(t, s, "/other", 100, 0); string(found) != "untouched" {
		t.Fatalf("Read(`/other`): wanted `untouched`; found `%s`", found)
	}
}

func TestRead_ShortAtEOF(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/f")
	write(t, s, "/f", []byte("hello"), 0)

	if found := read(t, s, "/f", 100, 3); string(found) != "lo" {
		t.Fatalf("Read(): wanted `lo`; found `%s`", found)
	}
	if found := read(t, s, "/f", 10, 5); len(found) != 0 {
		t.Fatalf("Read(): wanted `0` bytes at EOF; found `%d`", len(found))
	}
	if found := read(t, s, "/f", 10, 500); len(found) != 0 {
		t.Fatalf("Read(): wanted `0` bytes past EOF; found `%d`", len(found))
	}
}

func TestWrite_Offset(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/f")
	write(t, s, "/f", []byte("hello"), 0)
	write(t, s, "/f", []byte("J"), 0)
	write(t, s, "/f", []byte("!"), 7)

	wanted := []byte("Jello\x00\x00!")
	if found := read(t, s, "/f", 100, 0); !bytes.Equal(found, wanted) {
		t.Fatalf("Read(): wanted `%q`; found `%q`", wanted, found)
	}
}

func TestWrite_NoSpace(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/f")
	free := s.FreeBlocks()

	_, err := s.Write("/f", make([]byte, 200*BlockSize), 0)
	if !errors.Is(err, NoSpaceErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", NoSpaceErr, err)
	}
	if size := stat(t, s, "/f").Size; size != 0 {
		t.Fatalf("Stat(): wanted size `0`; found `%d`", size)
	}
	if found := s.FreeBlocks(); found != free {
		t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", free, found)
	}
}

func TestStat_Root(t *testing.T) {
	s := newStorage(t)
	for _, path := range []string{"", "/"} {
		st := stat(t, s, path)
		if st.Ino != InoRoot || !st.Mode.IsDir() || st.LinkCount != 1 {
			t.Fatalf("Stat(`%s`): unexpected stat `%+v`", path, st)
		}
	}
}

func TestMknod_Errors(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/file")

	type testCase struct {
		name        string
		path        string
		wantedError error
	}

	testCases := []testCase{{
		name:        "already exists",
		path:        "/file",
		wantedError: AlreadyExistsErr,
	}, {
		name:        "root",
		path:        "/",
		wantedError: AlreadyExistsErr,
	}, {
		name:        "missing parent",
		path:        "/nope/file",
		wantedError: ParentNotFoundErr,
	}, {
		name:        "parent is a file",
		path:        "/file/child",
		wantedError: NotADirErr,
	}, {
		name:        "name too long",
		path:        "/" + strings.Repeat("n", int(NameMax)+1),
		wantedError: NameTooLongErr,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			free := s.FreeBlocks()
			err := s.Mknod(tc.path, fileMode)
			if !errors.Is(err, tc.wantedError) {
				t.Fatalf("Mknod(): wanted `%v`; found `%v`", tc.wantedError, err)
			}
			if found := s.FreeBlocks(); found != free {
				t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", free, found)
			}
		})
	}

	// a missing parent is also a plain "not found"
	if err := s.Mknod("/nope/file", fileMode); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Mknod(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
}

func TestPathThroughRegularFile(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/f")

	if _, err := s.Stat("/f/x"); !errors.Is(err, NotFoundErr) ||
		!errors.Is(err, NotADirErr) {
		t.Fatalf("Stat(): wanted `%v` and `%v`; found `%v`", NotFoundErr, NotADirErr, err)
	}
	if err := s.Unlink("/f/x"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Unlink(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	for _, path := range []string{"/f/x", "/f/x/y"} {
		if err := s.Mknod(path, fileMode); !errors.Is(err, ParentNotFoundErr) {
			t.Fatalf("Mknod(`%s`): wanted `%v`; found `%v`", path, ParentNotFoundErr, err)
		}
	}
	if err := s.Link("/f", "/f/x"); !errors.Is(err, ParentNotFoundErr) {
		t.Fatalf("Link(): wanted `%v`; found `%v`", ParentNotFoundErr, err)
	}
}

func TestMknod_DirectoryFullReleasesInode(t *testing.T) {
	volume := blockio.NewBuffer(make([]byte, 128*BlockSize))
	s, err := Init(&Params{
		Volume:     volume,
		BlockCount: 128,
		InodeCount: 128,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Init(): unexpected err: %v", err)
	}
	for i := 0; i < int(DirCapacity); i++ {
		mknod(t, s, fmt.Sprintf("/f%d", i))
	}
	free := s.FreeBlocks()

	if err := s.Mknod("/overflow", fileMode); !errors.Is(err, DirectoryFullErr) {
		t.Fatalf("Mknod(): wanted `%v`; found `%v`", DirectoryFullErr, err)
	}
	if found := s.FreeBlocks(); found != free {
		t.Fatalf("FreeBlocks(): wanted `%d`; found `%d`", free, found)
	}
}

func TestUnlink(t *testing.T) {
	s := newStorage(t)
	if err := s.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	mknod(t, s, "/dir/file")

	if err := s.Unlink("/missing"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Unlink(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if err := s.Unlink("/dir"); !errors.Is(err, DirNotEmptyErr) {
		t.Fatalf("Unlink(): wanted `%v`; found `%v`", DirNotEmptyErr, err)
	}
	if err := s.Unlink("/"); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("Unlink(): wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}

	names, err := s.List("/dir")
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"file"}) {
		t.Fatalf("List(): wanted `[file]`; found `%v`", names)
	}

	if err := s.Unlink("/dir/file"); err != nil {
		t.Fatalf("Unlink(): unexpected err: %v", err)
	}
	if err := s.Unlink("/dir"); err != nil {
		t.Fatalf("Unlink(): unexpected err: %v", err)
	}
	if names, err := s.List("/"); err != nil || len(names) != 0 {
		t.Fatalf("List(): wanted no entries; found `%v`, `%v`", names, err)
	}
}

func TestUnlink_MissingMutatesNothing(t *testing.T) {
	volume := blockio.NewBuffer(make([]byte, 64*BlockSize))
	s := newStorageOn(t, volume)
	mknod(t, s, "/a")
	before := append([]byte(nil), volume.Bytes()...)

	if err := s.Unlink("/b"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Unlink(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush(): unexpected err: %v", err)
	}
	if !bytes.Equal(before, volume.Bytes()) {
		t.Fatal("Unlink(): failed unlink mutated the volume")
	}
}

func TestLink_Errors(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/a")
	mknod(t, s, "/b")

	if err := s.Link("/missing", "/c"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Link(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if err := s.Link("/a", "/b"); !errors.Is(err, AlreadyExistsErr) {
		t.Fatalf("Link(): wanted `%v`; found `%v`", AlreadyExistsErr, err)
	}
	if err := s.Link("/a", "/nope/c"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Link(): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if links := stat(t, s, "/a").LinkCount; links != 1 {
		t.Fatalf("Stat(): wanted link count `1`; found `%d`", links)
	}
}

func TestRename(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/a")
	write(t, s, "/a", []byte("payload"), 0)
	if err := s.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	ino := stat(t, s, "/a").Ino

	if err := s.Rename("/a", "/dir/b"); err != nil {
		t.Fatalf("Rename(): unexpected err: %v", err)
	}
	if _, err := s.Stat("/a"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Stat(`/a`): wanted `%v`; found `%v`", NotFoundErr, err)
	}
	st := stat(t, s, "/dir/b")
	if st.Ino != ino || st.LinkCount != 1 {
		t.Fatalf("Stat(`/dir/b`): unexpected stat `%+v`", st)
	}
	if found := read(t, s, "/dir/b", 100, 0); string(found) != "payload" {
		t.Fatalf("Read(): wanted `payload`; found `%s`", found)
	}

	// renaming a non-empty directory keeps its contents
	if err := s.Rename("/dir", "/moved"); err != nil {
		t.Fatalf("Rename(): unexpected err: %v", err)
	}
	if found := read(t, s, "/moved/b", 100, 0); string(found) != "payload" {
		t.Fatalf("Read(): wanted `payload`; found `%s`", found)
	}
	if links := stat(t, s, "/moved").LinkCount; links != 1 {
		t.Fatalf("Stat(`/moved`): wanted link count `1`; found `%d`", links)
	}
}

func TestRename_Errors(t *testing.T) {
	s := newStorage(t)
	mknod(t, s, "/a")
	mknod(t, s, "/b")
	if err := s.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}

	type testCase struct {
		name        string
		from        string
		to          string
		wantedError error
	}

	testCases := []testCase{{
		name:        "missing source",
		from:        "/missing",
		to:          "/c",
		wantedError: NotFoundErr,
	}, {
		name:        "existing destination",
		from:        "/a",
		to:          "/b",
		wantedError: AlreadyExistsErr,
	}, {
		name:        "into own subtree",
		from:        "/dir",
		to:          "/dir/sub",
		wantedError: InvalidArgumentErr,
	}, {
		name:        "into own subtree with dot components",
		from:        "/./dir/",
		to:          "dir/./sub",
		wantedError: InvalidArgumentErr,
	}, {
		name:        "root",
		from:        "/",
		to:          "/x",
		wantedError: InvalidArgumentErr,
	}, {
		name:        "dot dot is an ordinary name",
		from:        "/dir/..",
		to:          "/c",
		wantedError: NotFoundErr,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.Rename(tc.from, tc.to); !errors.Is(err, tc.wantedError) {
				t.Fatalf("Rename(): wanted `%v`; found `%v`", tc.wantedError, err)
			}
		})
	}

	// the failed link step leaves the source in place
	if links := stat(t, s, "/").LinkCount; links != 1 {
		t.Fatalf("Stat(`/`): wanted link count `1`; found `%d`", links)
	}
	for _, path := range []string{"/x", "/c", "/dir/sub"} {
		if _, err := s.Stat(path); !errors.Is(err, NotFoundErr) {
			t.Fatalf("Stat(`%s`): wanted `%v`; found `%v`", path, NotFoundErr, err)
		}
	}
	if links := stat(t, s, "/a").LinkCount; links != 1 {
		t.Fatalf("Stat(`/a`): wanted link count `1`; found `%d`", links)
	}
	if err := s.Rename("/a", "/a"); err != nil {
		t.Fatalf("Rename(): unexpected err: %v", err)
	}
}

func TestReadWrite_Directory(t *testing.T) {
	s := newStorage(t)
	if _, err := s.Write("/", []byte("x"), 0); !errors.Is(err, IsADirErr) {
		t.Fatalf("Write(): wanted `%v`; found `%v`", IsADirErr, err)
	}
	if _, err := s.Read("/", make([]byte, 1), 0); !errors.Is(err, IsADirErr) {
		t.Fatalf("Read(): wanted `%v`; found `%v`", IsADirErr, err)
	}
	if err := s.Truncate("/", 0); !errors.Is(err, IsADirErr) {
		t.Fatalf("Truncate(): wanted `%v`; found `%v`", IsADirErr, err)
	}
}

func TestInit_Reopen(t *testing.T) {
	volume := blockio.NewBuffer(make([]byte, 64*BlockSize))
	s := newStorageOn(t, volume)
	if err := s.Mkdir("/dir", 0700); err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	mknod(t, s, "/dir/f")
	write(t, s, "/dir/f", bytes.Repeat([]byte("z"), int(3*BlockSize)), 0)
	if err := s.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	reopened := newStorageOn(t, volume)
	if reopened.Superblock().UUID != s.Superblock().UUID {
		t.Fatal("Init(): reformatted an initialized volume")
	}
	st := stat(t, reopened, "/dir/f")
	if st.Size != 3*BlockSize {
		t.Fatalf("Stat(): wanted size `%d`; found `%d`", 3*BlockSize, st.Size)
	}
	found := read(t, reopened, "/dir/f", int(3*BlockSize), 0)
	if !bytes.Equal(found, bytes.Repeat([]byte("z"), int(3*BlockSize))) {
		t.Fatal("Read(): data didn't survive reopening")
	}
	if mode := stat(t, reopened, "/dir").Mode; mode != ModeDir|0700 {
		t.Fatalf("Stat(`/dir`): wanted mode `%s`; found `%s`", ModeDir|0700, mode)
	}
}
