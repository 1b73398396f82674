package tfs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := tfs.DefaultConfig()
	assert.EqualValues(t, 1024, c.BlockSize)
	assert.EqualValues(t, 1024, c.TotalBlocks)
	assert.EqualValues(t, 50, c.TotalInodes)
	assert.EqualValues(t, 20, c.MaxOpenFiles)
	assert.EqualValues(t, tfs.DefaultAccessDelayMS, c.AccessDelayMS)
	assert.False(t, c.ExportWholeBlocks)
	assert.NoError(t, c.Validate())

	// 10 direct blocks plus 256 pointers in the indirect block.
	assert.EqualValues(t, 266*1024, c.MaxFileSize())
}

func TestConfig__AccessDelay(t *testing.T) {
	c := tfs.Config{AccessDelayMS: 15}
	assert.Equal(t, 15*time.Millisecond, c.AccessDelay())
}

func TestConfig__Validate(t *testing.T) {
	base := tfs.DefaultConfig()

	cases := map[string]func(c *tfs.Config){
		"BlockSizeNotPowerOfTwo": func(c *tfs.Config) { c.BlockSize = 1000 },
		"BlockSizeTooSmall":      func(c *tfs.Config) { c.BlockSize = 32 },
		"NoBlocks":               func(c *tfs.Config) { c.TotalBlocks = 0 },
		"NoInodes":               func(c *tfs.Config) { c.TotalInodes = 0 },
		"NoOpenFiles":            func(c *tfs.Config) { c.MaxOpenFiles = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), errors.ErrOutOfRange)
		})
	}
}

func TestPresets(t *testing.T) {
	presets := tfs.Presets()
	require.Len(t, presets, 3)
	assert.Equal(t, "large", presets[0].Slug)
	assert.Equal(t, "tecnico", presets[1].Slug)
	assert.Equal(t, "tiny", presets[2].Slug)

	tiny, err := tfs.GetPreset("tiny")
	require.NoError(t, err)
	assert.EqualValues(t, 128, tiny.BlockSize)
	assert.EqualValues(t, 4, tiny.Config().MaxOpenFiles)

	_, err = tfs.GetPreset("nope")
	assert.Error(t, err)
}

func TestLoadConfig__NoFile(t *testing.T) {
	c, err := tfs.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, tfs.DefaultConfig(), c)
}

func TestLoadConfig__FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tfs.yaml")
	contents := "blockSize: 512\ntotalInodes: 10\naccessDelayMs: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	t.Setenv("TFS_TOTAL_INODES", "12")
	t.Setenv("TFS_EXPORT_WHOLE_BLOCKS", "true")

	c, err := tfs.LoadConfig(path)
	require.NoError(t, err)
	assert.EqualValues(t, 512, c.BlockSize, "value from file not applied")
	assert.EqualValues(t, 12, c.TotalInodes, "environment must override the file")
	assert.EqualValues(t, 3, c.AccessDelayMS)
	assert.True(t, c.ExportWholeBlocks)
	assert.EqualValues(t, 1024, c.TotalBlocks, "default not kept for missing key")
}

func TestLoadConfigFrom__Preset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxOpenFiles: 9\n"), 0o644))

	tiny, err := tfs.GetPreset("tiny")
	require.NoError(t, err)

	c, err := tfs.LoadConfigFrom(tiny.Config(), path)
	require.NoError(t, err)
	assert.EqualValues(t, 128, c.BlockSize, "preset value lost")
	assert.EqualValues(t, 9, c.MaxOpenFiles, "file must override the preset")
}

func TestLoadConfig__UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("blockSise: 512\n"), 0o644))

	_, err := tfs.LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig__InvalidResult(t *testing.T) {
	t.Setenv("TFS_BLOCK_SIZE", "100")
	_, err := tfs.LoadConfig("")
	assert.ErrorIs(t, err, errors.ErrOutOfRange)
}

func TestLoadConfig__MissingFile(t *testing.T) {
	_, err := tfs.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIOFlags(t *testing.T) {
	flags := tfs.O_CREATE | tfs.O_APPEND
	assert.True(t, flags.Create())
	assert.False(t, flags.Truncate())
	assert.True(t, flags.Append())
	assert.Equal(t, "O_CREATE|O_APPEND", flags.String())
	assert.Equal(t, "O_NONE", tfs.O_NONE.String())
}
