// Package snapshot copies whole volume images to and from an object store.
// Each snapshot is an image object plus a JSON manifest carrying the image's
// blake2b digest, which is checked before a pulled image touches the volume.
package snapshot

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/weberc2/blockfs/pkg/encode"
	blockio "github.com/weberc2/blockfs/pkg/io"
	"github.com/weberc2/blockfs/pkg/objectstore"
	. "github.com/weberc2/blockfs/pkg/types"
	"golang.org/x/crypto/blake2b"
)

const (
	DigestMismatchErr  ConstError = "snapshot digest mismatch"
	VolumeTooSmallErr  ConstError = "volume too small for snapshot"
	InvalidSnapshotErr ConstError = "invalid snapshot name"

	imageObject    = "image"
	manifestObject = "manifest.json"
)

type Manifest struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Key        string     `json:"key"`
	Size       Byte       `json:"size"`
	Digest     string     `json:"digest"`
	Created    time.Time  `json:"created"`
	Superblock Superblock `json:"superblock"`
}

type Snapshotter struct {
	ObjectStore objectstore.ObjectStore
	Bucket      string
	Prefix      string
	Logger      *slog.Logger

	// Now defaults to `time.Now`.
	Now func() time.Time
}

// Push uploads the image on `volume` under `name`, replacing any snapshot
// with the same key. The image's extent comes from its superblock, so the
// filesystem must be flushed first.
func (s *Snapshotter) Push(name string, volume blockio.ReadAt) (*Manifest, error) {
	key, err := Key(name)
	if err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}

	var (
		sb  Superblock
		raw [SuperblockSize]byte
	)
	if err := volume.ReadAt(0, raw[:]); err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}
	if err := encode.DecodeSuperblock(&sb, &raw); err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}

	size := Byte(sb.BlockCount) * BlockSize
	image := make([]byte, size)
	for offset := Byte(0); offset < size; offset += BlockSize {
		if err := volume.ReadAt(offset, image[offset:offset+BlockSize]); err != nil {
			return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
		}
	}

	manifest := Manifest{
		ID:         uuid.New(),
		Name:       name,
		Key:        key,
		Size:       size,
		Digest:     digest(image),
		Created:    s.now(),
		Superblock: sb,
	}
	if err := s.ObjectStore.PutObject(
		s.Bucket,
		s.object(key, imageObject),
		bytes.NewReader(image),
	); err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}

	// the manifest goes last so a listed snapshot always has its image
	data, err := json.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}
	if err := s.ObjectStore.PutObject(
		s.Bucket,
		s.object(key, manifestObject),
		bytes.NewReader(data),
	); err != nil {
		return nil, fmt.Errorf("pushing snapshot `%s`: %w", name, err)
	}

	s.logger().Info(
		"pushed snapshot",
		"name", name,
		"key", key,
		"id", manifest.ID.String(),
		"size", size,
	)
	return &manifest, nil
}

// Pull downloads the snapshot `name` and writes it over the start of
// `volume`, which must hold at least `capacity` bytes. Nothing is written
// unless the image matches the manifest's digest.
func (s *Snapshotter) Pull(
	name string,
	volume blockio.WriteAt,
	capacity Byte,
) (*Manifest, error) {
	key, err := Key(name)
	if err != nil {
		return nil, fmt.Errorf("pulling snapshot `%s`: %w", name, err)
	}
	manifest, err := s.manifest(key)
	if err != nil {
		return nil, fmt.Errorf("pulling snapshot `%s`: %w", name, err)
	}
	if manifest.Size > capacity {
		return nil, fmt.Errorf(
			"pulling snapshot `%s`: `%d` bytes into `%d`: %w",
			name,
			manifest.Size,
			capacity,
			VolumeTooSmallErr,
		)
	}

	body, err := s.ObjectStore.GetObject(s.Bucket, s.object(key, imageObject))
	if err != nil {
		return nil, fmt.Errorf("pulling snapshot `%s`: %w", name, err)
	}
	defer body.Close()
	image, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("pulling snapshot `%s`: %w", name, err)
	}
	if found := digest(image); Byte(len(image)) != manifest.Size ||
		found != manifest.Digest {
		return nil, fmt.Errorf(
			"pulling snapshot `%s`: wanted digest `%s`; found `%s`: %w",
			name,
			manifest.Digest,
			found,
			DigestMismatchErr,
		)
	}

	if err := volume.WriteAt(0, image); err != nil {
		return nil, fmt.Errorf("pulling snapshot `%s`: %w", name, err)
	}
	s.logger().Info(
		"pulled snapshot",
		"name", name,
		"id", manifest.ID.String(),
		"size", manifest.Size,
	)
	return manifest, nil
}

// List returns every snapshot's manifest, newest first.
func (s *Snapshotter) List() ([]Manifest, error) {
	keys, err := s.ObjectStore.ListObjects(s.Bucket, s.Prefix)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var manifests []Manifest
	for _, object := range keys {
		if !strings.HasSuffix(object, "/"+manifestObject) {
			continue
		}
		key := strings.TrimSuffix(
			strings.TrimPrefix(object, s.Prefix),
			"/"+manifestObject,
		)
		manifest, err := s.manifest(key)
		if err != nil {
			// deleted between listing and fetching
			var e *objectstore.ObjectNotFoundErr
			if errors.As(err, &e) {
				continue
			}
			return nil, fmt.Errorf("listing snapshots: %w", err)
		}
		manifests = append(manifests, *manifest)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Created.After(manifests[j].Created)
	})
	return manifests, nil
}

// Delete removes the snapshot `name`.
func (s *Snapshotter) Delete(name string) error {
	key, err := Key(name)
	if err != nil {
		return fmt.Errorf("deleting snapshot `%s`: %w", name, err)
	}
	if _, err := s.manifest(key); err != nil {
		return fmt.Errorf("deleting snapshot `%s`: %w", name, err)
	}
	for _, object := range []string{manifestObject, imageObject} {
		if err := s.ObjectStore.DeleteObject(
			s.Bucket,
			s.object(key, object),
		); err != nil {
			return fmt.Errorf("deleting snapshot `%s`: %w", name, err)
		}
	}
	return nil
}

// Key is the object-store-safe form of a snapshot name.
func Key(name string) (string, error) {
	key := slug.Make(name)
	if key == "" {
		return "", fmt.Errorf("name `%s`: %w", name, InvalidSnapshotErr)
	}
	return key, nil
}

func (s *Snapshotter) manifest(key string) (*Manifest, error) {
	body, err := s.ObjectStore.GetObject(s.Bucket, s.object(key, manifestObject))
	if err != nil {
		var e *objectstore.ObjectNotFoundErr
		if errors.As(err, &e) {
			return nil, fmt.Errorf("snapshot `%s`: %w: %w", key, NotFoundErr, err)
		}
		return nil, fmt.Errorf("fetching manifest `%s`: %w", key, err)
	}
	defer body.Close()

	var manifest Manifest
	if err := json.NewDecoder(body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest `%s`: %w", key, err)
	}
	return &manifest, nil
}

func (s *Snapshotter) object(key, object string) string {
	return s.Prefix + key + "/" + object
}

func (s *Snapshotter) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Snapshotter) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func digest(image []byte) string {
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:])
}
