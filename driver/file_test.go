package driver_test

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/errors"
	tfstest "github.com/dargueta/tfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile__ReadWrite(t *testing.T) {
	d := tfstest.MountDefault(t)

	file, err := d.OpenFile("/notes.txt", tfs.O_CREATE)
	require.NoError(t, err)
	assert.Equal(t, "/notes.txt", file.Name())

	data := tfstest.RandomBytes(t, 3333)
	n, err := io.Copy(file, bytes.NewReader(data))
	require.NoError(t, err)
	assert.EqualValues(t, len(data), n)

	offset, err := file.Tell()
	require.NoError(t, err)
	assert.EqualValues(t, len(data), offset)

	// The cursor is at the end, so there's nothing left to read.
	buffer := make([]byte, 10)
	read, err := file.Read(buffer)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, read)
	require.NoError(t, file.Close())

	assert.ErrorIs(t, file.Close(), errors.ErrNotFound, "double close")
	assert.Equal(t, data, tfstest.ReadFile(t, d, "/notes.txt"))
}

func TestFile__WriteTo(t *testing.T) {
	d := tfstest.MountDefault(t)
	data := tfstest.Pattern(5000, 0x33)
	tfstest.WriteFile(t, d, "/a", data)

	file, err := d.OpenFile("/a", tfs.O_NONE)
	require.NoError(t, err)
	defer file.Close()

	// Consume a little first so WriteTo starts mid-file.
	head := make([]byte, 700)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)

	var rest bytes.Buffer
	n, err := file.WriteTo(&rest)
	require.NoError(t, err)
	assert.EqualValues(t, 4300, n)
	assert.Equal(t, data[700:], rest.Bytes())
}

func TestFile__WriteTooLarge(t *testing.T) {
	d := tfstest.MountPreset(t, "tiny")
	maxSize := int(d.Config().MaxFileSize())

	file, err := d.OpenFile("/a", tfs.O_CREATE)
	require.NoError(t, err)
	defer file.Close()

	n, err := file.Write(make([]byte, maxSize+1))
	assert.ErrorIs(t, err, errors.ErrFileTooLarge)
	assert.Equal(t, maxSize, n)
}

func TestFile__Stat(t *testing.T) {
	d := tfstest.MountDefault(t)
	tfstest.WriteFile(t, d, "/data.bin", tfstest.Pattern(1500, 0))

	file, err := d.OpenFile("/data.bin", tfs.O_APPEND)
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, "data.bin", info.Name())
	assert.EqualValues(t, 1500, info.Size())
	assert.False(t, info.IsDir())
	assert.Equal(t, os.FileMode(0), info.Mode())
	assert.True(t, info.ModTime().IsZero())
}

// The namespace is flat, so a slash inside a name doesn't split it.
func TestFile__StatNameWithSlash(t *testing.T) {
	d := tfstest.MountDefault(t)
	tfstest.WriteFile(t, d, "/logs/2024/app.log", []byte("hello"))

	file, err := d.OpenFile("/logs/2024/app.log", tfs.O_NONE)
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, "logs/2024/app.log", info.Name())
	assert.EqualValues(t, 5, info.Size())
}

func TestOpenFile__NotFound(t *testing.T) {
	d := tfstest.MountDefault(t)

	file, err := d.OpenFile("/nope", tfs.O_NONE)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Nil(t, file)
}
