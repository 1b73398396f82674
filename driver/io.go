package driver

import (
	"io"
	"os"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/directory"
	"github.com/dargueta/tfs/errors"
	"github.com/dargueta/tfs/inode"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// transfer copies `buffer` into the file starting at `offset` if `toFile` is
// true, or fills `buffer` from the file otherwise. Every block the range
// touches must already be allocated. It returns the number of bytes copied
// before stopping.
func (driver *Driver) transfer(ino *inode.Inode, offset int64, buffer []byte, toFile bool) (int, error) {
	blockSize := int64(driver.pool.BytesPerBlock())

	done := 0
	for done < len(buffer) {
		position := offset + int64(done)
		block, err := ino.BlockAt(driver.pool, uint(position/blockSize))
		if err != nil {
			return done, err
		}

		within := position % blockSize
		if toFile {
			done += copy(block[within:], buffer[done:])
		} else {
			done += copy(buffer[done:], block[within:])
		}
	}
	return done, nil
}

// Read fills `buffer` from the handle's cursor and advances the cursor by the
// number of bytes read. Reading stops at the end of the file, so it returns 0
// and no error at or past the end.
func (driver *Driver) Read(handle common.Handle, buffer []byte) (int, error) {
	if err := driver.enter(); err != nil {
		return 0, err
	}
	defer driver.leave()

	entry, err := driver.openFiles.Get(handle)
	if err != nil {
		return 0, err
	}
	entry.Lock()
	defer entry.Unlock()

	lock := &driver.inodeLocks[entry.Inumber()]
	lock.RLock()
	defer lock.RUnlock()

	ino, err := driver.inodes.Get(entry.Inumber())
	if err != nil {
		return 0, err
	}

	offset := entry.Offset()
	remaining := ino.Size - offset
	if remaining <= 0 {
		return 0, nil
	}

	length := int64(len(buffer))
	if length > remaining {
		length = remaining
	}

	n, err := driver.transfer(ino, offset, buffer[:length], false)
	entry.Advance(n)
	return n, err
}

// Write stores `buffer` at the handle's cursor, growing the file if needed, and
// advances the cursor by the number of bytes written.
//
// Nothing is written past the maximum file size; the excess is silently dropped
// and the short count is returned with no error. If the block pool runs out of
// space, the bytes that fit in the blocks already allocated are written and the
// short count is returned together with ENOSPC.
func (driver *Driver) Write(handle common.Handle, buffer []byte) (int, error) {
	if err := driver.enter(); err != nil {
		return 0, err
	}
	defer driver.leave()
	return driver.write(handle, buffer)
}

func (driver *Driver) write(handle common.Handle, buffer []byte) (int, error) {
	entry, err := driver.openFiles.Get(handle)
	if err != nil {
		return 0, err
	}
	entry.Lock()
	defer entry.Unlock()

	lock := &driver.inodeLocks[entry.Inumber()]
	lock.Lock()
	defer lock.Unlock()

	ino, err := driver.inodes.Get(entry.Inumber())
	if err != nil {
		return 0, err
	}

	blockSize := driver.pool.BytesPerBlock()
	offset := entry.Offset()
	length := int64(len(buffer))
	if maxSize := inode.MaxFileSize(blockSize); offset+length > maxSize {
		length = maxSize - offset
	}
	if length <= 0 {
		return 0, nil
	}

	needed := inode.LengthToNumBlocks(offset+length, blockSize)
	allocated, allocErr := ino.EnsureBlocks(driver.pool, needed)
	if allocErr != nil {
		limit := int64(allocated)*int64(blockSize) - offset
		if limit <= 0 {
			return 0, allocErr
		}
		length = limit
		driver.log.WithFields(logrus.Fields{
			"inode":     entry.Inumber(),
			"requested": len(buffer),
			"written":   length,
		}).Warn("write shortened, block pool is full")
	}

	n, err := driver.transfer(ino, offset, buffer[:length], true)
	if end := offset + int64(n); end > ino.Size {
		ino.Size = end
	}
	entry.Advance(n)

	if err != nil {
		return n, err
	}
	return n, allocErr
}

////////////////////////////////////////////////////////////////////////////////
// Copying in and out

// lockForExport resolves `path` and read-locks its inode. The root directory
// is released once the file's lock is held. On success the caller must call
// the returned function to release the file.
func (driver *Driver) lockForExport(path string) (*inode.Inode, func(), error) {
	name, err := directory.ValidatePath(path)
	if err != nil {
		return nil, nil, err
	}

	rootLock := &driver.inodeLocks[common.RootInumber]
	rootLock.RLock()
	defer rootLock.RUnlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return nil, nil, err
	}
	inumber, err := directory.Lookup(root, driver.pool, name)
	if err != nil {
		return nil, nil, err
	}

	fileLock := &driver.inodeLocks[inumber]
	fileLock.RLock()

	ino, err := driver.inodes.Get(inumber)
	if err != nil {
		fileLock.RUnlock()
		return nil, nil, err
	}
	return ino, fileLock.RUnlock, nil
}

// CopyToExternal writes the contents of the file at `path` to `w` in block
// order, and returns the number of bytes written. The file is read-locked for
// the whole copy.
//
// Only the file's bytes are written unless the engine was configured with
// ExportWholeBlocks, in which case every allocated block is written in full.
func (driver *Driver) CopyToExternal(path string, w io.Writer) (int64, error) {
	if err := driver.enter(); err != nil {
		return 0, err
	}
	defer driver.leave()

	ino, release, err := driver.lockForExport(path)
	if err != nil {
		return 0, err
	}
	defer release()

	blockSize := int64(driver.pool.BytesPerBlock())
	numBlocks := inode.LengthToNumBlocks(ino.Size, driver.pool.BytesPerBlock())

	var written int64
	for i := uint(0); i < numBlocks; i++ {
		block, err := ino.BlockAt(driver.pool, i)
		if err != nil {
			return written, err
		}

		if !driver.config.ExportWholeBlocks {
			if rest := ino.Size - int64(i)*blockSize; rest < blockSize {
				block = block[:rest]
			}
		}

		n, err := w.Write(block)
		written += int64(n)
		if err != nil {
			return written, errors.ErrIOFailed.Wrap(err)
		}
		if n < len(block) {
			return written, errors.ErrIOFailed.Wrap(io.ErrShortWrite)
		}
	}

	driver.log.WithFields(logrus.Fields{"path": path, "bytes": written}).Debug("copied out")
	return written, nil
}

// CopyToExternalFile copies the file at `path` into a new host file at
// `hostPath`, replacing it if it exists. The host file isn't created if `path`
// doesn't exist.
func (driver *Driver) CopyToExternalFile(path, hostPath string) (int64, error) {
	if _, err := driver.Lookup(path); err != nil {
		return 0, err
	}

	output, err := os.Create(hostPath)
	if err != nil {
		return 0, errors.ErrIOFailed.Wrap(err)
	}

	written, copyErr := driver.CopyToExternal(path, output)
	var result *multierror.Error
	if copyErr != nil {
		result = multierror.Append(result, copyErr)
	}
	if closeErr := output.Close(); closeErr != nil {
		result = multierror.Append(result, errors.ErrIOFailed.Wrap(closeErr))
	}
	return written, result.ErrorOrNil()
}

// CopyFromExternal creates or replaces the file at `path` with everything read
// from `r`, and returns the number of bytes stored. If the engine runs out of
// space, the bytes stored so far are kept and the error is returned.
func (driver *Driver) CopyFromExternal(r io.Reader, path string) (int64, error) {
	if err := driver.enter(); err != nil {
		return 0, err
	}
	defer driver.leave()

	handle, err := driver.open(path, tfs.O_CREATE|tfs.O_TRUNC)
	if err != nil {
		return 0, err
	}

	file := &handleWriter{driver: driver, handle: handle}
	buffer := make([]byte, driver.pool.BytesPerBlock())
	stored, copyErr := io.CopyBuffer(file, r, buffer)

	var result *multierror.Error
	if copyErr != nil {
		result = multierror.Append(result, copyErr)
	}
	if closeErr := driver.openFiles.Remove(handle); closeErr != nil {
		result = multierror.Append(result, closeErr)
	}

	driver.log.WithFields(logrus.Fields{"path": path, "bytes": stored}).Debug("copied in")
	return stored, result.ErrorOrNil()
}

// handleWriter adapts a handle to [io.Writer] for callers that already hold the
// driver's state lock.
type handleWriter struct {
	driver *Driver
	handle common.Handle
}

func (w *handleWriter) Write(p []byte) (int, error) {
	n, err := w.driver.write(w.handle, p)
	if err == nil && n < len(p) {
		err = errors.ErrFileTooLarge.WithMessage("file reached its maximum size")
	}
	return n, err
}
