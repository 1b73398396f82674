package tfs

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/dargueta/tfs/directory"
	"github.com/dargueta/tfs/errors"
	"github.com/dargueta/tfs/inode"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvVarPrefix is prepended to the environment variable names read by
// [LoadConfig], e.g. TFS_BLOCK_SIZE.
const EnvVarPrefix = "TFS"

// DefaultAccessDelayMS is the artificial storage latency used when none is
// configured.
const DefaultAccessDelayMS = 0

// Config holds the capacity constants of an engine instance. None of them can
// change once the engine is created.
type Config struct {
	// BlockSize is the size of a data block in bytes. It must be a power of two
	// large enough to hold one directory entry.
	BlockSize    uint `yaml:"blockSize" envconfig:"BLOCK_SIZE"`
	TotalBlocks  uint `yaml:"totalBlocks" envconfig:"TOTAL_BLOCKS"`
	TotalInodes  uint `yaml:"totalInodes" envconfig:"TOTAL_INODES"`
	MaxOpenFiles uint `yaml:"maxOpenFiles" envconfig:"MAX_OPEN_FILES"`
	// AccessDelayMS is slept on every inode or block access to simulate slow
	// storage.
	AccessDelayMS uint `yaml:"accessDelayMs" envconfig:"ACCESS_DELAY_MS"`
	// ExportWholeBlocks makes copy-out write every allocated block in full,
	// including the bytes past the end of the file in the last block.
	ExportWholeBlocks bool `yaml:"exportWholeBlocks" envconfig:"EXPORT_WHOLE_BLOCKS"`
}

// DefaultConfig returns the configuration of the default preset.
func DefaultConfig() Config {
	preset, err := GetPreset(DefaultPresetSlug)
	if err != nil {
		panic(fmt.Errorf("default preset is missing: %w", err))
	}
	return preset.Config()
}

// AccessDelay returns AccessDelayMS as a duration.
func (c Config) AccessDelay() time.Duration {
	return time.Duration(c.AccessDelayMS) * time.Millisecond
}

// MaxFileSize is the largest a single file can grow, in bytes.
func (c Config) MaxFileSize() int64 {
	return inode.MaxFileSize(c.BlockSize)
}

// Validate checks that the configuration describes a usable engine.
func (c Config) Validate() error {
	if c.BlockSize < directory.DirentSize || c.BlockSize&(c.BlockSize-1) != 0 {
		return errors.Errorf(
			errors.ERANGE,
			"block size must be a power of two no smaller than %d, got %d",
			directory.DirentSize,
			c.BlockSize)
	}
	if c.TotalBlocks == 0 || uint64(c.TotalBlocks) >= math.MaxUint32 {
		return errors.Errorf(
			errors.ERANGE, "total blocks must be in [1, %d), got %d", uint64(math.MaxUint32), c.TotalBlocks)
	}
	if c.TotalInodes == 0 {
		return errors.NewWithMessage(errors.ERANGE, "need at least one inode for the root directory")
	}
	if c.MaxOpenFiles == 0 {
		return errors.NewWithMessage(errors.ERANGE, "need at least one open file slot")
	}
	return nil
}

// LoadConfig builds a configuration starting from the defaults, then applies the
// YAML file at `path` (if `path` is not empty), then any TFS_* environment
// variables. The result is validated.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFrom(DefaultConfig(), path)
}

// LoadConfigFrom is like [LoadConfig] but starts from `c` instead of the
// defaults, e.g. a preset's configuration.
func LoadConfigFrom(c Config, path string) (Config, error) {

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err = decodeYAML(data, &c); err != nil {
			return Config{}, fmt.Errorf("unmarshaling config file %q: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvVarPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("parsing environment variables: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// decodeYAML decodes a YAML document into `c`, rejecting unknown keys. Keys
// that are absent leave the existing values alone.
func decodeYAML(data []byte, c *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	err := decoder.Decode(c)
	if err == io.EOF {
		return nil
	}
	return err
}
