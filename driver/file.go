package driver

import (
	"io"
	"os"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
)

// File is a handle wrapped up to behave like an [os.File] opened for reading
// and writing. It is not safe to use after Close.
type File struct {
	driver *Driver
	handle common.Handle
	path   string
}

// OpenFile opens `path` like [Driver.Open] and wraps the handle in a [File].
func (driver *Driver) OpenFile(path string, flags tfs.IOFlags) (*File, error) {
	handle, err := driver.Open(path, flags)
	if err != nil {
		return nil, err
	}
	return &File{driver: driver, handle: handle, path: path}, nil
}

// Handle returns the underlying handle.
func (file *File) Handle() common.Handle {
	return file.handle
}

// Name returns the path the file was opened with.
func (file *File) Name() string {
	return file.path
}

// Read implements [io.Reader]. It returns [io.EOF] once the cursor is at the end
// of the file.
func (file *File) Read(p []byte) (int, error) {
	n, err := file.driver.Read(file.handle, p)
	if err == nil && n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, err
}

// Write implements [io.Writer]. Unlike [Driver.Write], a write cut short by
// the maximum file size is an error.
func (file *File) Write(p []byte) (int, error) {
	n, err := file.driver.Write(file.handle, p)
	if err == nil && n < len(p) {
		err = errors.ErrFileTooLarge.WithMessage(file.path)
	}
	return n, err
}

// WriteTo implements [io.WriterTo], copying from the cursor to the end of the
// file one block at a time.
func (file *File) WriteTo(w io.Writer) (int64, error) {
	buffer := make([]byte, file.driver.pool.BytesPerBlock())

	var total int64
	for {
		n, err := file.driver.Read(file.handle, buffer)
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}

		written, err := w.Write(buffer[:n])
		total += int64(written)
		if err != nil {
			return total, err
		}
		if written < n {
			return total, io.ErrShortWrite
		}
	}
}

// Tell returns the cursor position.
func (file *File) Tell() (int64, error) {
	return file.driver.Tell(file.handle)
}

func (file *File) Close() error {
	return file.driver.Close(file.handle)
}

// Stat returns information about the file as an [os.FileInfo].
func (file *File) Stat() (os.FileInfo, error) {
	stat, err := file.driver.StatHandle(file.handle)
	if err != nil {
		return nil, err
	}
	return FileInfo{FileStat: stat, name: file.path}, nil
}
