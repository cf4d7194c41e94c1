// Package config loads blockfs settings from a YAML file and `BLOCKFS_*`
// environment variables, the latter taking precedence.
package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgrijalva/jwt-go"
	"github.com/kelseyhightower/envconfig"
	. "github.com/weberc2/blockfs/pkg/types"
	"gopkg.in/yaml.v2"
)

const (
	envVarPrefix = "BLOCKFS"
	appName      = "blockfs"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

type Config struct {
	Backend       string    `envconfig:"BACKEND"        yaml:"backend"`
	ImagePath     string    `envconfig:"IMAGE_PATH"     yaml:"imagePath"`
	VolumeName    string    `envconfig:"VOLUME_NAME"    yaml:"volumeName"`
	BlockCount    Block     `envconfig:"BLOCK_COUNT"    yaml:"blockCount"`
	InodeCount    Ino       `envconfig:"INODE_COUNT"    yaml:"inodeCount"`
	CacheCapacity int       `envconfig:"CACHE_CAPACITY" yaml:"cacheCapacity"`
	Region        string    `envconfig:"REGION"         yaml:"region"`
	Bucket        string    `envconfig:"BUCKET"         yaml:"bucket"`
	Prefix        string    `envconfig:"PREFIX"         yaml:"prefix"`
	Addr          string    `envconfig:"ADDR"           yaml:"addr"`
	LogLevel      string    `envconfig:"LOG_LEVEL"      yaml:"logLevel"`
	PublicKey     PublicKey `envconfig:"PUBLIC_KEY"     yaml:"publicKey"`
}

func Default() Config {
	return Config{
		Backend:       BackendFile,
		ImagePath:     "blockfs.img",
		VolumeName:    appName,
		BlockCount:    256,
		InodeCount:    256,
		CacheCapacity: 64,
		Prefix:        "snapshots/",
		Addr:          "127.0.0.1:8080",
		LogLevel:      "info",
	}
}

// Load reads `BLOCKFS_CONFIG_FILE` (or `blockfs.yaml` in the user's config
// directory) if it exists, then applies the environment.
func Load() (*Config, error) {
	configFile := os.Getenv(envVarPrefix + "_CONFIG_FILE")
	if configFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		configFile = filepath.Join(dir, appName+".yaml")
	}
	return LoadFile(configFile)
}

// LoadFile is Load with an explicit file. A missing file is not an error.
func LoadFile(configFile string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshaling config file `%s`: %w", configFile, err)
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if y, e := func() (string, string) {
		switch c.Backend {
		case BackendMemory:
		case BackendFile, BackendBolt:
			if c.ImagePath == "" {
				return "imagePath", "IMAGE_PATH"
			}
		case BackendPostgres:
			if c.VolumeName == "" {
				return "volumeName", "VOLUME_NAME"
			}
		default:
			return "backend", "BACKEND"
		}
		if c.BlockCount < 1 {
			return "blockCount", "BLOCK_COUNT"
		}
		if c.InodeCount < 1 {
			return "inodeCount", "INODE_COUNT"
		}
		if c.Addr == "" {
			return "addr", "ADDR"
		}
		return "", ""
	}(); y != "" {
		return fmt.Errorf(
			"missing or invalid configuration: %s / %s_%s",
			y,
			envVarPrefix,
			e,
		)
	}
	return nil
}

// Size is the byte size of a volume with `BlockCount` blocks.
func (c *Config) Size() Byte { return Byte(c.BlockCount) * BlockSize }

// PublicKey verifies bearer tokens. The zero value disables authentication.
type PublicKey struct {
	Key *ecdsa.PublicKey
}

func (pk *PublicKey) Decode(value string) error {
	if value == "" {
		return nil
	}
	key, err := jwt.ParseECPublicKeyFromPEM([]byte(value))
	if err != nil {
		return fmt.Errorf("parsing ecdsa public key: %w", err)
	}
	pk.Key = key
	return nil
}

func (pk *PublicKey) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *PublicKey: %w", err)
	}
	if err := pk.Decode(s); err != nil {
		return fmt.Errorf("yaml-unmarshaling *PublicKey: %w", err)
	}
	return nil
}
