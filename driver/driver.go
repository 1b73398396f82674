// Package driver ties the engine's layers together and exposes the public,
// POSIX-like operations on top of them.
//
// Locking:
//
//   - Every inode slot has a reader-writer lock. The root directory's lock
//     guards the namespace: read-locked for lookups and listings, write-locked
//     for creating and unlinking entries. A file's lock is read-locked for
//     reads, stat, and copy-out, and write-locked for writes and truncation.
//   - The open file table serializes handle allocation internally.
//   - Each open file entry has a mutex held for the whole of a read or write
//     through that handle.
//
// The root directory's lock is always taken before a file's lock, and an open
// file entry's mutex before a file's lock. The open file table's lock is only
// held briefly and never while waiting on another lock. Opening a file keeps
// the root directory locked until its handle is registered, so a file can't be
// unlinked between being found and being opened.
//
// Reads and writes through different handles on the same file are serialized
// by the file's inode lock but are otherwise unordered with respect to each
// other.
package driver

import (
	stderrors "errors"
	"io"
	"sync"

	"github.com/dargueta/tfs"
	"github.com/dargueta/tfs/blockpool"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/directory"
	"github.com/dargueta/tfs/errors"
	"github.com/dargueta/tfs/inode"
	"github.com/dargueta/tfs/openfile"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// Driver is one independent engine instance. Create it with [New], then call
// [Driver.Mount] before using it.
type Driver struct {
	config tfs.Config
	id     uuid.UUID
	log    logrus.FieldLogger

	// stateLock is read-locked for the duration of every public operation and
	// write-locked by Mount and Unmount.
	stateLock sync.RWMutex
	mounted   bool

	pool       *blockpool.Pool
	inodes     *inode.Table
	inodeLocks []sync.RWMutex
	openFiles  *openfile.Table
}

// New validates `config` and allocates an engine with the capacities it gives.
// If `logger` is nil, log output is discarded.
func New(config tfs.Config, logger logrus.FieldLogger) (*Driver, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	id := uuid.New()
	pool := blockpool.New(config.BlockSize, config.TotalBlocks, config.AccessDelay())
	return &Driver{
		config:    config,
		id:        id,
		log:       logger.WithField("volume", id.String()),
		pool:      pool,
		inodes:    inode.NewTable(config.TotalInodes, pool, config.AccessDelay()),
		openFiles: openfile.NewTable(config.MaxOpenFiles),
	}, nil
}

// ID returns the unique identifier of this engine instance. It appears in every
// log entry the driver emits.
func (driver *Driver) ID() uuid.UUID {
	return driver.id
}

// Config returns the configuration the driver was created with.
func (driver *Driver) Config() tfs.Config {
	return driver.config
}

// Mount initializes the engine: all tables are emptied, all locks are replaced,
// and the root directory is created. Calling Mount again without an Unmount in
// between fails with EALREADY.
func (driver *Driver) Mount() error {
	driver.stateLock.Lock()
	defer driver.stateLock.Unlock()

	if driver.mounted {
		return errors.ErrAlreadyInitialized.WithMessage("engine is already mounted")
	}

	driver.pool.Reset()
	driver.inodes.Reset()
	driver.openFiles.Reset()
	driver.inodeLocks = make([]sync.RWMutex, driver.inodes.Len())

	root, err := driver.inodes.Create(common.KindDirectory)
	if err != nil {
		return err
	}
	if root != common.RootInumber {
		return errors.Errorf(
			errors.EUCLEAN, "root directory got inode %d, expected %d", root, common.RootInumber)
	}

	driver.mounted = true
	driver.log.WithFields(logrus.Fields{
		"blockSize":    driver.config.BlockSize,
		"totalBlocks":  driver.config.TotalBlocks,
		"totalInodes":  driver.config.TotalInodes,
		"maxOpenFiles": driver.config.MaxOpenFiles,
	}).Debug("mounted")
	return nil
}

// Unmount shuts the engine down, closing every handle that's still open. The
// contents of the tables aren't cleared, but nothing can be accessed until the
// next Mount, which starts from scratch.
func (driver *Driver) Unmount() error {
	driver.stateLock.Lock()
	defer driver.stateLock.Unlock()

	if !driver.mounted {
		return errors.ErrNotInitialized.WithMessage("engine is not mounted")
	}

	var result *multierror.Error
	open := driver.openFiles.Handles()
	for _, handle := range open {
		if err := driver.openFiles.Remove(handle); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if len(open) > 0 {
		driver.log.WithField("handles", open).Warn("closed handles left open at unmount")
	}

	driver.mounted = false
	driver.log.Debug("unmounted")
	return result.ErrorOrNil()
}

// IsMounted reports whether the engine is between Mount and Unmount.
func (driver *Driver) IsMounted() bool {
	driver.stateLock.RLock()
	defer driver.stateLock.RUnlock()
	return driver.mounted
}

// enter must be called at the beginning of every public operation. If it
// returns nil, the caller must call leave when it's done.
func (driver *Driver) enter() error {
	driver.stateLock.RLock()
	if !driver.mounted {
		driver.stateLock.RUnlock()
		return errors.ErrNotInitialized.WithMessage("engine is not mounted")
	}
	return nil
}

func (driver *Driver) leave() {
	driver.stateLock.RUnlock()
}

////////////////////////////////////////////////////////////////////////////////
// Namespace

// lookupName resolves an entry name in the root directory.
func (driver *Driver) lookupName(name string) (common.Inumber, error) {
	lock := &driver.inodeLocks[common.RootInumber]
	lock.RLock()
	defer lock.RUnlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return common.InvalidInumber, err
	}
	return directory.Lookup(root, driver.pool, name)
}

// Lookup returns the inode number of the file at `path`.
func (driver *Driver) Lookup(path string) (common.Inumber, error) {
	if err := driver.enter(); err != nil {
		return common.InvalidInumber, err
	}
	defer driver.leave()

	name, err := directory.ValidatePath(path)
	if err != nil {
		return common.InvalidInumber, err
	}
	return driver.lookupName(name)
}

// ReadDir lists the entries of the root directory in storage order.
func (driver *Driver) ReadDir() ([]directory.Entry, error) {
	if err := driver.enter(); err != nil {
		return nil, err
	}
	defer driver.leave()

	lock := &driver.inodeLocks[common.RootInumber]
	lock.RLock()
	defer lock.RUnlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return nil, err
	}
	return directory.List(root, driver.pool)
}

// Unlink removes the file at `path` and frees its inode and blocks. The
// directory entry is removed before the inode is freed, so no name is ever
// left pointing at a free inode. It fails with EBUSY if the file is open.
func (driver *Driver) Unlink(path string) error {
	if err := driver.enter(); err != nil {
		return err
	}
	defer driver.leave()

	name, err := directory.ValidatePath(path)
	if err != nil {
		return err
	}

	rootLock := &driver.inodeLocks[common.RootInumber]
	rootLock.Lock()
	defer rootLock.Unlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return err
	}

	inumber, err := directory.Lookup(root, driver.pool, name)
	if err != nil {
		return err
	}
	if open := driver.openFiles.OpenCount(inumber); open > 0 {
		return errors.Errorf(errors.EBUSY, "%q has %d open handle(s)", path, open)
	}
	if _, err = directory.Remove(root, driver.pool, name); err != nil {
		return err
	}

	fileLock := &driver.inodeLocks[inumber]
	fileLock.Lock()
	defer fileLock.Unlock()

	if err = driver.inodes.Delete(inumber); err != nil {
		return err
	}
	driver.log.WithFields(logrus.Fields{"path": path, "inode": inumber}).Debug("unlinked")
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// Opening and closing

// Open opens the file at `path` and returns a handle to it.
//
//   - If the file exists, [tfs.O_TRUNC] frees its contents and [tfs.O_APPEND]
//     starts the cursor at its end. Otherwise the cursor starts at 0.
//   - If the file doesn't exist, it's created when [tfs.O_CREATE] is given and
//     Open fails with ENOENT otherwise.
func (driver *Driver) Open(path string, flags tfs.IOFlags) (common.Handle, error) {
	if err := driver.enter(); err != nil {
		return common.InvalidHandle, err
	}
	defer driver.leave()
	return driver.open(path, flags)
}

func (driver *Driver) open(path string, flags tfs.IOFlags) (common.Handle, error) {
	name, err := directory.ValidatePath(path)
	if err != nil {
		return common.InvalidHandle, err
	}

	handle, err := driver.openExisting(name, flags)
	if stderrors.Is(err, errors.ErrNotFound) && flags.Create() {
		handle, err = driver.openCreate(name, flags)
	}
	if err != nil {
		return common.InvalidHandle, err
	}

	driver.log.WithFields(logrus.Fields{
		"path":   path,
		"flags":  flags.String(),
		"handle": handle,
	}).Debug("opened")
	return handle, nil
}

// openExisting opens `name` if it's in the root directory. The root directory
// stays read-locked until the handle is registered, so the file can't be
// unlinked in between.
func (driver *Driver) openExisting(name string, flags tfs.IOFlags) (common.Handle, error) {
	rootLock := &driver.inodeLocks[common.RootInumber]
	rootLock.RLock()
	defer rootLock.RUnlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return common.InvalidHandle, err
	}
	inumber, err := directory.Lookup(root, driver.pool, name)
	if err != nil {
		return common.InvalidHandle, err
	}
	return driver.register(inumber, flags)
}

// openCreate makes a new file called `name` and opens it. If another caller
// created the name first, the existing file is opened instead.
func (driver *Driver) openCreate(name string, flags tfs.IOFlags) (common.Handle, error) {
	rootLock := &driver.inodeLocks[common.RootInumber]
	rootLock.Lock()
	defer rootLock.Unlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return common.InvalidHandle, err
	}

	if existing, err := directory.Lookup(root, driver.pool, name); err == nil {
		return driver.register(existing, flags)
	}

	inumber, err := driver.inodes.Create(common.KindFile)
	if err != nil {
		return common.InvalidHandle, err
	}

	if err = directory.Insert(root, driver.pool, name, inumber); err != nil {
		if deleteErr := driver.inodes.Delete(inumber); deleteErr != nil {
			driver.log.WithError(deleteErr).WithField("inode", inumber).Error(
				"failed to release inode after directory insert failed")
		}
		driver.log.WithError(err).WithField("name", name).Warn("create rolled back")
		return common.InvalidHandle, err
	}
	driver.log.WithFields(logrus.Fields{"name": name, "inode": inumber}).Debug("created")

	// The file stays created if there's no free handle for it.
	return driver.register(inumber, flags)
}

// register applies O_TRUNC and O_APPEND to an existing file and adds it to the
// open file table. The caller must hold the root directory's lock.
func (driver *Driver) register(inumber common.Inumber, flags tfs.IOFlags) (common.Handle, error) {
	offset, err := driver.prepare(inumber, flags)
	if err != nil {
		return common.InvalidHandle, err
	}
	return driver.openFiles.Insert(inumber, offset)
}

// prepare truncates the file if O_TRUNC is given and computes the initial
// cursor position. The inode's lock is held only for the duration of the call.
func (driver *Driver) prepare(inumber common.Inumber, flags tfs.IOFlags) (int64, error) {
	lock := &driver.inodeLocks[inumber]
	if flags.Truncate() {
		lock.Lock()
		defer lock.Unlock()
	} else {
		lock.RLock()
		defer lock.RUnlock()
	}

	ino, err := driver.inodes.Get(inumber)
	if err != nil {
		return 0, err
	}

	if flags.Truncate() {
		if err = ino.FreeBlocks(driver.pool); err != nil {
			return 0, err
		}
	}

	if flags.Append() {
		return ino.Size, nil
	}
	return 0, nil
}

// Close releases a handle. Using the handle afterwards fails with ENOENT.
func (driver *Driver) Close(handle common.Handle) error {
	if err := driver.enter(); err != nil {
		return err
	}
	defer driver.leave()

	if err := driver.openFiles.Remove(handle); err != nil {
		return err
	}
	driver.log.WithField("handle", handle).Debug("closed")
	return nil
}

// Tell returns the cursor position of a handle.
func (driver *Driver) Tell(handle common.Handle) (int64, error) {
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
	return entry.Offset(), nil
}

////////////////////////////////////////////////////////////////////////////////
// Metadata

func (driver *Driver) statInode(inumber common.Inumber) (FileStat, error) {
	lock := &driver.inodeLocks[inumber]
	lock.RLock()
	defer lock.RUnlock()

	ino, err := driver.inodes.Get(inumber)
	if err != nil {
		return FileStat{}, err
	}
	numBlocks, err := ino.CountBlocks(driver.pool)
	if err != nil {
		return FileStat{}, err
	}
	return FileStat{
		Inumber:   inumber,
		Kind:      ino.Kind,
		Size:      ino.Size,
		BlockSize: driver.pool.BytesPerBlock(),
		NumBlocks: numBlocks,
	}, nil
}

// Stat returns information about the file at `path`. The root directory stays
// read-locked until the file has been examined, so the entry can't be unlinked
// and its inode reused in between.
func (driver *Driver) Stat(path string) (FileStat, error) {
	if err := driver.enter(); err != nil {
		return FileStat{}, err
	}
	defer driver.leave()

	name, err := directory.ValidatePath(path)
	if err != nil {
		return FileStat{}, err
	}

	rootLock := &driver.inodeLocks[common.RootInumber]
	rootLock.RLock()
	defer rootLock.RUnlock()

	root, err := driver.inodes.Get(common.RootInumber)
	if err != nil {
		return FileStat{}, err
	}
	inumber, err := directory.Lookup(root, driver.pool, name)
	if err != nil {
		return FileStat{}, err
	}
	return driver.statInode(inumber)
}

// StatHandle returns information about the file a handle refers to.
func (driver *Driver) StatHandle(handle common.Handle) (FileStat, error) {
	if err := driver.enter(); err != nil {
		return FileStat{}, err
	}
	defer driver.leave()

	entry, err := driver.openFiles.Get(handle)
	if err != nil {
		return FileStat{}, err
	}
	return driver.statInode(entry.Inumber())
}

// FreeBlocks returns the number of unallocated data blocks.
func (driver *Driver) FreeBlocks() uint {
	return driver.pool.FreeBlocks()
}
