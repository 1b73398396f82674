// Package common contains definitions of fundamental types and functions used
// across the engine's layers.
package common

import "math"

// BlockID is the index of a data block in the block pool.
type BlockID uint32

// Inumber is the index of an inode in the inode table.
type Inumber int

// Handle identifies an entry in the open file table.
type Handle int

// NoBlock marks an unallocated block slot in an inode or a pointer block.
const NoBlock = BlockID(math.MaxUint32)

const InvalidInumber = Inumber(-1)
const InvalidHandle = Handle(-1)

// RootInumber is the inode number reserved for the root directory. It's the
// first inode handed out after the inode table is reset.
const RootInumber = Inumber(0)

// InodeKind distinguishes directories from regular files.
type InodeKind int

const (
	KindFile InodeKind = iota
	KindDirectory
)

func (kind InodeKind) String() string {
	switch kind {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}
