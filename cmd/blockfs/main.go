package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"
	"github.com/weberc2/blockfs/pkg/config"
	"github.com/weberc2/blockfs/pkg/logger"
	"github.com/weberc2/blockfs/pkg/server"
	"github.com/weberc2/blockfs/pkg/storage"
	. "github.com/weberc2/blockfs/pkg/types"
)

func main() {
	var cfg *config.Config

	app := cli.App{
		Name:  "blockfs",
		Usage: "manage a block-based filesystem image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
				EnvVars: []string{"BLOCKFS_CONFIG_FILE"},
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			if path := c.String("config"); path != "" {
				cfg, err = config.LoadFile(path)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			c.Context = logger.Set(c.Context, logger.New(cfg.LogLevel))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "format the volume if it isn't already and print its superblock",
				Action: func(c *cli.Context) error {
					return withStorage(c, cfg, func(s *storage.Storage) error {
						return printJSON(s.Superblock())
					})
				},
			},
			{
				Name:      "stat",
				Usage:     "print an inode's metadata",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					return withStorage(c, cfg, func(s *storage.Storage) error {
						stat, err := s.Stat(c.Args().First())
						if err != nil {
							return err
						}
						return printJSON(stat)
					})
				},
			},
			{
				Name:      "ls",
				Usage:     "list a directory",
				ArgsUsage: "[PATH]",
				Action: func(c *cli.Context) error {
					return withStorage(c, cfg, func(s *storage.Storage) error {
						names, err := s.List(c.Args().First())
						if err != nil {
							return err
						}
						for _, name := range names {
							fmt.Println(name)
						}
						return nil
					})
				},
			},
			{
				Name:      "cat",
				Usage:     "write a file's contents to stdout",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					path, err := arg(c, 0)
					if err != nil {
						return err
					}
					return withStorage(c, cfg, func(s *storage.Storage) error {
						return cat(s, path, os.Stdout)
					})
				},
			},
			{
				Name:      "write",
				Usage:     "copy stdin into a file",
				ArgsUsage: "PATH",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "offset", Usage: "byte offset to write at"},
				},
				Action: func(c *cli.Context) error {
					path, err := arg(c, 0)
					if err != nil {
						return err
					}
					data, err := io.ReadAll(os.Stdin)
					if err != nil {
						return fmt.Errorf("reading stdin: %w", err)
					}
					return withStorage(c, cfg, func(s *storage.Storage) error {
						_, err := s.Write(path, data, Byte(c.Int64("offset")))
						return err
					})
				},
			},
			{
				Name:      "mknod",
				Usage:     "create an empty file",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{modeFlag("644")},
				Action: func(c *cli.Context) error {
					return withMode(c, cfg, (*storage.Storage).Mknod)
				},
			},
			{
				Name:      "mkdir",
				Usage:     "create an empty directory",
				ArgsUsage: "PATH",
				Flags:     []cli.Flag{modeFlag("755")},
				Action: func(c *cli.Context) error {
					return withMode(c, cfg, (*storage.Storage).Mkdir)
				},
			},
			{
				Name:      "rm",
				Usage:     "remove a directory entry",
				ArgsUsage: "PATH",
				Action: func(c *cli.Context) error {
					path, err := arg(c, 0)
					if err != nil {
						return err
					}
					return withStorage(c, cfg, func(s *storage.Storage) error {
						return s.Unlink(path)
					})
				},
			},
			{
				Name:      "ln",
				Usage:     "add a hard link to an existing inode",
				ArgsUsage: "EXISTING NEW",
				Action: func(c *cli.Context) error {
					return withPair(c, cfg, (*storage.Storage).Link)
				},
			},
			{
				Name:      "mv",
				Usage:     "move a directory entry",
				ArgsUsage: "FROM TO",
				Action: func(c *cli.Context) error {
					return withPair(c, cfg, (*storage.Storage).Rename)
				},
			},
			{
				Name:      "truncate",
				Usage:     "resize a file",
				ArgsUsage: "PATH SIZE",
				Action: func(c *cli.Context) error {
					path, err := arg(c, 0)
					if err != nil {
						return err
					}
					raw, err := arg(c, 1)
					if err != nil {
						return err
					}
					size, err := strconv.ParseInt(raw, 10, 64)
					if err != nil {
						return fmt.Errorf("parsing size `%s`: %w", raw, err)
					}
					return withStorage(c, cfg, func(s *storage.Storage) error {
						return s.Truncate(path, Byte(size))
					})
				},
			},
			snapshotCommand(&cfg),
			{
				Name:  "serve",
				Usage: "serve the filesystem over HTTP",
				Action: func(c *cli.Context) error {
					return withStorage(c, cfg, func(s *storage.Storage) error {
						srv := server.Server{
							Storage: s,
							Auth:    &server.Authenticator{Key: cfg.PublicKey.Key},
						}
						logger.Get(c.Context).Info(
							"listening",
							"addr", cfg.Addr,
							"auth", cfg.PublicKey.Key != nil,
						)
						if err := http.ListenAndServe(cfg.Addr, srv.Handler()); err != nil {
							return fmt.Errorf("starting server: %w", err)
						}
						return nil
					})
				},
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		slog.Error("exiting", "err", err.Error())
		os.Exit(1)
	}
}

func withStorage(
	c *cli.Context,
	cfg *config.Config,
	f func(*storage.Storage) error,
) error {
	s, err := cfg.OpenStorage(logger.Get(c.Context))
	if err != nil {
		return err
	}
	if err := f(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

func withMode(
	c *cli.Context,
	cfg *config.Config,
	f func(*storage.Storage, string, Mode) error,
) error {
	path, err := arg(c, 0)
	if err != nil {
		return err
	}
	mode, err := strconv.ParseUint(c.String("mode"), 8, 32)
	if err != nil {
		return fmt.Errorf("parsing mode `%s`: %w", c.String("mode"), err)
	}
	return withStorage(c, cfg, func(s *storage.Storage) error {
		return f(s, path, Mode(mode))
	})
}

func withPair(
	c *cli.Context,
	cfg *config.Config,
	f func(*storage.Storage, string, string) error,
) error {
	first, err := arg(c, 0)
	if err != nil {
		return err
	}
	second, err := arg(c, 1)
	if err != nil {
		return err
	}
	return withStorage(c, cfg, func(s *storage.Storage) error {
		return f(s, first, second)
	})
}

func cat(s *storage.Storage, path string, w io.Writer) error {
	buf := make([]byte, BlockSize)
	var offset Byte
	for {
		n, err := s.Read(path, buf, offset)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if _, err := w.Write(buf[:n]); err != nil {
			return fmt.Errorf("writing `%s` to output: %w", path, err)
		}
		offset += n
	}
}

func modeFlag(def string) cli.Flag {
	return &cli.StringFlag{
		Name:  "mode",
		Value: def,
		Usage: "permission bits in octal",
	}
}

func arg(c *cli.Context, i int) (string, error) {
	if c.NArg() <= i {
		return "", fmt.Errorf(
			"`%s`: missing argument %d (usage: %s)",
			c.Command.Name,
			i+1,
			c.Command.ArgsUsage,
		)
	}
	return c.Args().Get(i), nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
