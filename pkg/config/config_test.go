package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/weberc2/blockfs/pkg/boltvolume"
	blockio "github.com/weberc2/blockfs/pkg/io"
	. "github.com/weberc2/blockfs/pkg/types"
)

const publicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIGbMBAGByqGSM49AgEGBSuBBAAjA4GGAAQAYBSFocptc55p/qHHu4CbGWGT8rVB
PN+l3SkTHVlB79e7UF2V1zA+kygK6VouT4G5euQHmLqtGomX/z4sbXJ7+asAlH0H
ekgSMfKSa8cr3XOOU4nA0QxOBh21CsAM8kBf1g22IbOKW0T8p/fOfykGWFFifHCb
WYo90xpg+FCLh9uXA0s=
-----END PUBLIC KEY-----`

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "blockfs.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile(): unexpected err: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	type testCase struct {
		name   string
		file   string
		env    map[string]string
		wanted func(*Config)
	}

	testCases := []testCase{{
		name:   "defaults",
		wanted: func(*Config) {},
	}, {
		name: "file",
		file: "backend: bolt\nimagePath: /tmp/fs.db\nblockCount: 1024\n",
		wanted: func(c *Config) {
			c.Backend = BackendBolt
			c.ImagePath = "/tmp/fs.db"
			c.BlockCount = 1024
		},
	}, {
		name: "env overrides file",
		file: "backend: bolt\naddr: 0.0.0.0:80\n",
		env: map[string]string{
			"BLOCKFS_BACKEND":     "memory",
			"BLOCKFS_INODE_COUNT": "32",
		},
		wanted: func(c *Config) {
			c.Backend = BackendMemory
			c.Addr = "0.0.0.0:80"
			c.InodeCount = 32
		},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tc.file != "" {
				path = writeFile(t, tc.file)
			}

			found, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile(): unexpected err: %v", err)
			}
			wanted := Default()
			tc.wanted(&wanted)
			if *found != wanted {
				t.Fatalf("LoadFile(): wanted `%+v`; found `%+v`", wanted, *found)
			}
		})
	}
}

func TestLoadFile_UnknownField(t *testing.T) {
	if _, err := LoadFile(writeFile(t, "backened: bolt\n")); err == nil {
		t.Fatal("LoadFile(): wanted an error for an unknown field; found `nil`")
	}
}

func TestLoadFile_PublicKey(t *testing.T) {
	t.Setenv("BLOCKFS_PUBLIC_KEY", publicKeyPEM)
	c, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile(): unexpected err: %v", err)
	}
	if c.PublicKey.Key == nil {
		t.Fatal("LoadFile(): wanted a public key; found `nil`")
	}

	indented := "publicKey: |\n  " + strings.ReplaceAll(publicKeyPEM, "\n", "\n  ") + "\n"
	os.Unsetenv("BLOCKFS_PUBLIC_KEY")
	c, err = LoadFile(writeFile(t, indented))
	if err != nil {
		t.Fatalf("LoadFile(): unexpected err: %v", err)
	}
	if c.PublicKey.Key == nil {
		t.Fatal("LoadFile(): wanted a public key; found `nil`")
	}
}

func TestValidate(t *testing.T) {
	type testCase struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}

	testCases := []testCase{
		{name: "defaults", modify: func(*Config) {}},
		{name: "unknown backend", modify: func(c *Config) { c.Backend = "tape" }, wantErr: true},
		{name: "no image path", modify: func(c *Config) { c.ImagePath = "" }, wantErr: true},
		{
			name:   "memory without image path",
			modify: func(c *Config) { c.Backend = BackendMemory; c.ImagePath = "" },
		},
		{name: "no blocks", modify: func(c *Config) { c.BlockCount = 0 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.modify(&c)
			if err := c.Validate(); (err != nil) != tc.wantErr {
				t.Fatalf("Validate(): wanted error `%v`; found `%v`", tc.wantErr, err)
			}
		})
	}
}

func TestOpenVolume(t *testing.T) {
	c := Default()
	c.BlockCount = 8

	c.Backend = BackendMemory
	volume, err := c.OpenVolume()
	if err != nil {
		t.Fatalf("OpenVolume(): unexpected err: %v", err)
	}
	if _, ok := volume.(*blockio.Buffer); !ok {
		t.Fatalf("OpenVolume(): wanted `*io.Buffer`; found `%T`", volume)
	}

	c.Backend = BackendBolt
	c.ImagePath = filepath.Join(t.TempDir(), "fs.db")
	s, err := c.OpenStorage(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("OpenStorage(): unexpected err: %v", err)
	}
	if err := s.Mkdir("/dir", 0755); err != nil {
		t.Fatalf("Mkdir(): unexpected err: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close(): unexpected err: %v", err)
	}

	volume, err = c.OpenVolume()
	if err != nil {
		t.Fatalf("OpenVolume(): unexpected err: %v", err)
	}
	defer volume.(*boltvolume.Volume).Close()
	if size := volume.(*boltvolume.Volume).Size(); size != 8*BlockSize {
		t.Fatalf("Size(): wanted `%d`; found `%d`", 8*BlockSize, size)
	}

	c.Backend = "tape"
	if _, err := c.OpenVolume(); err == nil {
		t.Fatalf("OpenVolume(): wanted an unknown backend error; found `%v`", err)
	}
}
