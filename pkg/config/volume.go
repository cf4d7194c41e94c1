package config

import (
	"fmt"
	"log/slog"

	"github.com/weberc2/blockfs/pkg/boltvolume"
	blockio "github.com/weberc2/blockfs/pkg/io"
	"github.com/weberc2/blockfs/pkg/objectstore"
	"github.com/weberc2/blockfs/pkg/pgvolume"
	"github.com/weberc2/blockfs/pkg/snapshot"
	"github.com/weberc2/blockfs/pkg/storage"
)

// OpenVolume opens the configured backend. Volumes that need closing
// implement `io.Closer`, which `storage.Storage.Close` honors.
func (c *Config) OpenVolume() (blockio.Volume, error) {
	switch c.Backend {
	case BackendMemory:
		return blockio.NewBuffer(make([]byte, c.Size())), nil
	case BackendFile:
		return blockio.OpenFile(c.ImagePath, c.Size())
	case BackendBolt:
		return boltvolume.Open(c.ImagePath, c.Size())
	case BackendPostgres:
		db, err := pgvolume.OpenEnvPing()
		if err != nil {
			return nil, err
		}
		if err := pgvolume.Ensure(db); err != nil {
			db.Close()
			return nil, err
		}
		v, err := pgvolume.Open(db, c.VolumeName, c.Size())
		if err != nil {
			db.Close()
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("opening volume: unknown backend `%s`", c.Backend)
	}
}

// OpenStorage opens the configured volume and the filesystem on it,
// formatting it if needed.
func (c *Config) OpenStorage(logger *slog.Logger) (*storage.Storage, error) {
	volume, err := c.OpenVolume()
	if err != nil {
		return nil, err
	}
	s, err := storage.Init(&storage.Params{
		Volume:        volume,
		BlockCount:    c.BlockCount,
		InodeCount:    c.InodeCount,
		CacheCapacity: c.CacheCapacity,
		Logger:        logger,
	})
	if err != nil {
		if closer, ok := volume.(interface{ Close() error }); ok {
			closer.Close()
		}
		return nil, err
	}
	return s, nil
}

// Snapshotter pushes gzipped images to the configured S3 bucket.
func (c *Config) Snapshotter(logger *slog.Logger) (*snapshot.Snapshotter, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf(
			"missing required configuration: bucket / %s_BUCKET",
			envVarPrefix,
		)
	}
	s3, err := objectstore.NewS3ObjectStore(c.Region)
	if err != nil {
		return nil, err
	}
	return &snapshot.Snapshotter{
		ObjectStore: &objectstore.GzipObjectStore{ObjectStore: s3},
		Bucket:      c.Bucket,
		Prefix:      c.Prefix,
		Logger:      logger,
	}, nil
}
