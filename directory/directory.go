// Package directory implements the single flat namespace stored in the root
// directory's data blocks.
//
// Each entry is a fixed-size record:
//
//	offset  size  field
//	0       4     inode number (little-endian)
//	4       1     name length; 0 means the record is free
//	5       59    name, padded with NULs
//
// Records never straddle blocks, and a freshly allocated (zeroed) block is made
// up entirely of free records. The root has no entry for itself.
//
// Every function here expects the caller to hold the root inode's lock: a read
// lock for [Lookup] and [List], a write lock for [Insert] and [Remove].
package directory

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"strings"

	"github.com/dargueta/tfs/blockpool"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
	"github.com/dargueta/tfs/inode"
)

const DirentSize = 64
const MaxNameLength = DirentSize - 5

// Separator is the only character with meaning in a path, and only at the
// beginning of it.
const Separator = "/"

// Entry is a decoded directory record.
type Entry struct {
	Name    string
	Inumber common.Inumber
}

// ValidatePath checks that a path is acceptable to the public API and returns
// the entry name it refers to. A path must be at least two characters long and
// start with [Separator]. Only the leading separator is stripped; any others
// are part of the name.
func ValidatePath(path string) (string, error) {
	if len(path) < 2 || !strings.HasPrefix(path, Separator) {
		return "", errors.Errorf(
			errors.EINVAL, "path %q must start with %q and name an entry", path, Separator)
	}

	name := path[len(Separator):]
	if len(name) > MaxNameLength {
		return "", errors.Errorf(
			errors.ENAMETOOLONG,
			"%q is %d bytes, limit is %d",
			name,
			len(name),
			MaxNameLength)
	}
	return name, nil
}

func decodeEntry(record []byte) (Entry, bool) {
	nameLength := int(record[4])
	if nameLength == 0 || nameLength > MaxNameLength {
		return Entry{}, false
	}
	return Entry{
		Inumber: common.Inumber(binary.LittleEndian.Uint32(record[0:4])),
		Name:    string(record[5 : 5+nameLength]),
	}, true
}

func encodeEntry(record []byte, entry Entry) {
	binary.LittleEndian.PutUint32(record[0:4], uint32(entry.Inumber))
	record[4] = byte(len(entry.Name))
	copy(record[5:], entry.Name)
	for i := 5 + len(entry.Name); i < DirentSize; i++ {
		record[i] = 0
	}
}

func clearEntry(record []byte) {
	for i := range record {
		record[i] = 0
	}
}

// walk calls `visit` with every record in the directory, free or not, in
// order. It stops early if `visit` returns false.
func walk(
	root *inode.Inode,
	pool *blockpool.Pool,
	visit func(record []byte) bool,
) error {
	bytesPerBlock := pool.BytesPerBlock()
	numBlocks := inode.LengthToNumBlocks(root.Size, bytesPerBlock)
	recordsPerBlock := bytesPerBlock / DirentSize

	for blockIndex := uint(0); blockIndex < numBlocks; blockIndex++ {
		block, err := root.BlockAt(pool, blockIndex)
		if err != nil {
			return err
		}
		for i := uint(0); i < recordsPerBlock; i++ {
			if !visit(block[i*DirentSize : (i+1)*DirentSize]) {
				return nil
			}
		}
	}
	return nil
}

// find returns the record holding the entry called `name`, or nil.
func find(root *inode.Inode, pool *blockpool.Pool, name string) ([]byte, error) {
	var found []byte
	nameBytes := []byte(name)

	err := walk(root, pool, func(record []byte) bool {
		nameLength := int(record[4])
		if nameLength != len(nameBytes) || !bytes.Equal(record[5:5+nameLength], nameBytes) {
			return true
		}
		found = record
		return false
	})
	return found, err
}

// Lookup finds the inode number of the entry called `name`. Matching is exact
// and case-sensitive.
func Lookup(root *inode.Inode, pool *blockpool.Pool, name string) (common.Inumber, error) {
	record, err := find(root, pool, name)
	if err != nil {
		return common.InvalidInumber, err
	}
	if record == nil {
		return common.InvalidInumber, errors.Errorf(errors.ENOENT, "no entry named %q", name)
	}
	entry, _ := decodeEntry(record)
	return entry.Inumber, nil
}

// Insert adds an entry mapping `name` to `inumber`. It reuses the first free
// record, growing the directory by one block if there is none.
func Insert(
	root *inode.Inode,
	pool *blockpool.Pool,
	name string,
	inumber common.Inumber,
) error {
	if name == "" {
		return errors.NewWithMessage(errors.EINVAL, "entry name can't be empty")
	}
	if len(name) > MaxNameLength {
		return errors.Errorf(
			errors.ENAMETOOLONG, "entry name %q is longer than %d bytes", name, MaxNameLength)
	}
	existing, err := find(root, pool, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.Errorf(errors.EEXIST, "entry %q already exists", name)
	}

	var slot []byte
	err = walk(root, pool, func(record []byte) bool {
		if record[4] != 0 {
			return true
		}
		slot = record
		return false
	})
	if err != nil {
		return err
	}

	if slot == nil {
		slot, err = grow(root, pool)
		if err != nil {
			return err
		}
	}

	encodeEntry(slot, Entry{Name: name, Inumber: inumber})
	return nil
}

// grow appends one block to the directory and returns its first record.
func grow(root *inode.Inode, pool *blockpool.Pool) ([]byte, error) {
	bytesPerBlock := pool.BytesPerBlock()
	numBlocks := inode.LengthToNumBlocks(root.Size, bytesPerBlock)

	// An indirect block allocated before a failure stays with the root and is
	// picked up by the next successful grow.
	if _, err := root.EnsureBlocks(pool, numBlocks+1); err != nil {
		if stderrors.Is(err, errors.ErrFileTooLarge) {
			return nil, errors.ErrNoSpaceOnDevice.WithMessage("root directory is full")
		}
		return nil, err
	}

	block, err := root.BlockAt(pool, numBlocks)
	if err != nil {
		return nil, err
	}
	root.Size = int64(numBlocks+1) * int64(bytesPerBlock)
	return block[:DirentSize], nil
}

// Remove deletes the entry called `name` and returns the inode number it
// referred to. The inode itself is untouched.
func Remove(root *inode.Inode, pool *blockpool.Pool, name string) (common.Inumber, error) {
	record, err := find(root, pool, name)
	if err != nil {
		return common.InvalidInumber, err
	}
	if record == nil {
		return common.InvalidInumber, errors.Errorf(errors.ENOENT, "no entry named %q", name)
	}

	entry, _ := decodeEntry(record)
	clearEntry(record)
	return entry.Inumber, nil
}

// List returns every entry in the directory, in storage order.
func List(root *inode.Inode, pool *blockpool.Pool) ([]Entry, error) {
	entries := make([]Entry, 0)
	err := walk(root, pool, func(record []byte) bool {
		if entry, ok := decodeEntry(record); ok {
			entries = append(entries, entry)
		}
		return true
	})
	return entries, err
}
