package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/blockfs/pkg/config"
	"github.com/weberc2/blockfs/pkg/logger"
	"github.com/weberc2/blockfs/pkg/snapshot"
	"github.com/weberc2/blockfs/pkg/storage"
)

// snapshotCommand takes a pointer because the config is only loaded once the
// app's `Before` hook runs.
func snapshotCommand(cfg **config.Config) *cli.Command {
	snapshotter := func(c *cli.Context) (*snapshot.Snapshotter, error) {
		return (*cfg).Snapshotter(logger.Get(c.Context))
	}

	return &cli.Command{
		Name:  "snapshot",
		Usage: "copy volume images to and from S3",
		Subcommands: []*cli.Command{
			{
				Name:      "push",
				Usage:     "upload the volume image",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0)
					if err != nil {
						return err
					}
					snapshots, err := snapshotter(c)
					if err != nil {
						return err
					}
					volume, err := (*cfg).OpenVolume()
					if err != nil {
						return err
					}

					// formats the volume if needed and closes it afterwards
					s, err := storage.Init(&storage.Params{
						Volume:        volume,
						BlockCount:    (*cfg).BlockCount,
						InodeCount:    (*cfg).InodeCount,
						CacheCapacity: (*cfg).CacheCapacity,
						Logger:        logger.Get(c.Context),
					})
					if err != nil {
						return err
					}
					manifest, err := snapshots.Push(name, volume)
					if err != nil {
						s.Close()
						return err
					}
					if err := s.Close(); err != nil {
						return err
					}
					return printJSON(manifest)
				},
			},
			{
				Name:      "pull",
				Usage:     "overwrite the volume with a snapshot",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0)
					if err != nil {
						return err
					}
					snapshots, err := snapshotter(c)
					if err != nil {
						return err
					}
					volume, err := (*cfg).OpenVolume()
					if err != nil {
						return err
					}
					manifest, err := snapshots.Pull(name, volume, (*cfg).Size())
					if closer, ok := volume.(interface{ Close() error }); ok {
						if closeErr := closer.Close(); err == nil && closeErr != nil {
							err = fmt.Errorf("closing volume: %w", closeErr)
						}
					}
					if err != nil {
						return err
					}
					return printJSON(manifest)
				},
			},
			{
				Name:  "ls",
				Usage: "list snapshots, newest first",
				Action: func(c *cli.Context) error {
					snapshots, err := snapshotter(c)
					if err != nil {
						return err
					}
					manifests, err := snapshots.List()
					if err != nil {
						return err
					}
					return printJSON(manifests)
				},
			},
			{
				Name:      "rm",
				Usage:     "delete a snapshot",
				ArgsUsage: "NAME",
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0)
					if err != nil {
						return err
					}
					snapshots, err := snapshotter(c)
					if err != nil {
						return err
					}
					return snapshots.Delete(name)
				},
			},
		},
	}
}
