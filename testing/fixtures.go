package testing

import (
	"crypto/rand"
	"io"
	"testing"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/driver"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// Mount creates a driver with the given configuration and mounts it. It's
// unmounted automatically when the test finishes, unless the test already did.
// If `logger` is nil, log output is discarded.
func Mount(t *testing.T, config tfs.Config, logger logrus.FieldLogger) *driver.Driver {
	d, err := driver.New(config, logger)
	require.NoError(t, err, "failed to create driver")
	require.NoError(t, d.Mount(), "failed to mount driver")

	t.Cleanup(func() {
		if d.IsMounted() {
			require.NoError(t, d.Unmount(), "failed to unmount driver at end of test")
		}
	})
	return d
}

// MountDefault mounts a driver with [tfs.DefaultConfig].
func MountDefault(t *testing.T) *driver.Driver {
	return Mount(t, tfs.DefaultConfig(), nil)
}

// MountPreset mounts a driver using one of the named capacity presets.
func MountPreset(t *testing.T, slug string) *driver.Driver {
	preset, err := tfs.GetPreset(slug)
	require.NoErrorf(t, err, "unknown preset %q", slug)
	return Mount(t, preset.Config(), nil)
}

// RandomBytes returns `size` random bytes, or fails the test.
func RandomBytes(t *testing.T, size int) []byte {
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoErrorf(t, err, "failed to generate %d random bytes", size)
	return data
}

// Pattern returns `size` bytes counting up from `seed` and wrapping around.
// Patterns with different seeds differ at every offset.
func Pattern(size int, seed byte) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return data
}

// NewSource wraps a copy of `data` in a seekable stream, so that tests can
// check `data` afterwards without worrying about the stream mutating it.
func NewSource(data []byte) io.ReadWriteSeeker {
	buffer := make([]byte, len(data))
	copy(buffer, data)
	return bytesextra.NewReadWriteSeeker(buffer)
}

// WriteFile creates or truncates `path` and writes all of `data` to it, failing
// the test if anything goes wrong.
func WriteFile(t *testing.T, d *driver.Driver, path string, data []byte) {
	file, err := d.OpenFile(path, tfs.O_CREATE|tfs.O_TRUNC)
	require.NoErrorf(t, err, "failed to open %q for writing", path)

	n, err := file.Write(data)
	require.NoErrorf(t, err, "failed to write %d bytes to %q", len(data), path)
	require.Equal(t, len(data), n, "short write")
	require.NoError(t, file.Close())
}

// ReadFile returns the entire contents of `path`, failing the test if anything
// goes wrong.
func ReadFile(t *testing.T, d *driver.Driver, path string) []byte {
	file, err := d.OpenFile(path, tfs.O_NONE)
	require.NoErrorf(t, err, "failed to open %q for reading", path)

	data, err := io.ReadAll(file)
	require.NoErrorf(t, err, "failed to read %q", path)
	require.NoError(t, file.Close())
	return data
}
