package snapshot

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	blockio "github.com/weberc2/blockfs/pkg/io"
	"github.com/weberc2/blockfs/pkg/objectstore"
	"github.com/weberc2/blockfs/pkg/storage"
	"github.com/weberc2/blockfs/pkg/testsupport"
	. "github.com/weberc2/blockfs/pkg/types"
)

const blockCount = 16

func newSnapshotter(store objectstore.ObjectStore) *Snapshotter {
	return &Snapshotter{
		ObjectStore: store,
		Bucket:      "bucket",
		Prefix:      "snapshots/",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func newVolume(t *testing.T, contents string) *blockio.Buffer {
	volume := blockio.NewBuffer(make([]byte, blockCount*BlockSize))
	s, err := storage.Init(&storage.Params{
		Volume:     volume,
		BlockCount: blockCount,
		InodeCount: 8,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Init(): unexpected err: %v", err)
	}
	if err := s.Mknod("/hello", ModeRegular|0644); err != nil {
		t.Fatalf("Mknod(): unexpected err: %v", err)
	}
	if _, err := s.Write("/hello", []byte(contents), 0); err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}
	return volume
}

func TestPushPull(t *testing.T) {
	snapshotter := newSnapshotter(&objectstore.GzipObjectStore{
		ObjectStore: testsupport.ObjectStoreFake{},
	})
	source := newVolume(t, "hello, world")

	pushed, err := snapshotter.Push("Before Upgrade", source)
	if err != nil {
		t.Fatalf("Push(): unexpected err: %v", err)
	}
	if pushed.Key != "before-upgrade" {
		t.Fatalf("Push(): wanted key `before-upgrade`; found `%s`", pushed.Key)
	}
	if pushed.Size != blockCount*BlockSize {
		t.Fatalf("Push(): wanted size `%d`; found `%d`", blockCount*BlockSize, pushed.Size)
	}

	target := blockio.NewBuffer(make([]byte, blockCount*BlockSize))
	pulled, err := snapshotter.Pull("before upgrade", target, blockCount*BlockSize)
	if err != nil {
		t.Fatalf("Pull(): unexpected err: %v", err)
	}
	if pulled.ID != pushed.ID || pulled.Digest != pushed.Digest {
		t.Fatalf("Pull(): wanted manifest `%v`; found `%v`", pushed, pulled)
	}

	s, err := storage.Init(&storage.Params{
		Volume: target,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Init(): unexpected err: %v", err)
	}
	if s.Superblock().UUID != pushed.Superblock.UUID {
		t.Fatalf(
			"Superblock(): wanted uuid `%s`; found `%s`",
			pushed.Superblock.UUID,
			s.Superblock().UUID,
		)
	}
	found := make([]byte, 64)
	n, err := s.Read("/hello", found, 0)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if string(found[:n]) != "hello, world" {
		t.Fatalf("Read(): wanted `hello, world`; found `%s`", found[:n])
	}
}

func TestPull_Errors(t *testing.T) {
	fake := testsupport.ObjectStoreFake{}
	snapshotter := newSnapshotter(fake)
	if _, err := snapshotter.Push("snap", newVolume(t, "data")); err != nil {
		t.Fatalf("Push(): unexpected err: %v", err)
	}

	if _, err := snapshotter.Pull(
		"snap",
		blockio.NewBuffer(make([]byte, BlockSize)),
		BlockSize,
	); !errors.Is(err, VolumeTooSmallErr) {
		t.Fatalf("Pull(): wanted `%v`; found `%v`", VolumeTooSmallErr, err)
	}

	if _, err := snapshotter.Pull(
		"missing",
		blockio.NewBuffer(make([]byte, blockCount*BlockSize)),
		blockCount*BlockSize,
	); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Pull(): wanted `%v`; found `%v`", NotFoundErr, err)
	}

	fake[testsupport.ObjectKey{Bucket: "bucket", Key: "snapshots/snap/image"}][BlockSize] ^= 0xff
	target := make([]byte, blockCount*BlockSize)
	if _, err := snapshotter.Pull(
		"snap",
		blockio.NewBuffer(target),
		blockCount*BlockSize,
	); !errors.Is(err, DigestMismatchErr) {
		t.Fatalf("Pull(): wanted `%v`; found `%v`", DigestMismatchErr, err)
	}
	for i := range target {
		if target[i] != 0 {
			t.Fatalf("Pull(): wrote to the volume despite a digest mismatch")
		}
	}
}

func TestPush_Unformatted(t *testing.T) {
	snapshotter := newSnapshotter(testsupport.ObjectStoreFake{})
	if _, err := snapshotter.Push(
		"empty",
		blockio.NewBuffer(make([]byte, BlockSize)),
	); !errors.Is(err, BadMagicErr) {
		t.Fatalf("Push(): wanted `%v`; found `%v`", BadMagicErr, err)
	}
}

func TestListDelete(t *testing.T) {
	snapshotter := newSnapshotter(testsupport.ObjectStoreFake{})
	clock := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshotter.Now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	volume := newVolume(t, "data")
	for _, name := range []string{"first", "second", "third"} {
		if _, err := snapshotter.Push(name, volume); err != nil {
			t.Fatalf("Push(`%s`): unexpected err: %v", name, err)
		}
	}

	if err := snapshotter.Delete("second"); err != nil {
		t.Fatalf("Delete(): unexpected err: %v", err)
	}
	if err := snapshotter.Delete("second"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("Delete(): wanted `%v`; found `%v`", NotFoundErr, err)
	}

	manifests, err := snapshotter.List()
	if err != nil {
		t.Fatalf("List(): unexpected err: %v", err)
	}
	var names []string
	for _, manifest := range manifests {
		names = append(names, manifest.Name)
	}
	if len(names) != 2 || names[0] != "third" || names[1] != "first" {
		t.Fatalf("List(): wanted `[third first]`; found `%v`", names)
	}
}

func TestKey(t *testing.T) {
	if _, err := Key("!!!"); !errors.Is(err, InvalidSnapshotErr) {
		t.Fatalf("Key(): wanted `%v`; found `%v`", InvalidSnapshotErr, err)
	}
}
