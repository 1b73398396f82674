package inode

import (
	"time"

	"github.com/dargueta/tfs/blockpool"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
)

// Table is a fixed-size array of inodes. Slot allocation is safe for concurrent
// use; the contents of an individual inode are not, see [Inode].
type Table struct {
	inodes      []Inode
	allocator   *common.Allocator
	pool        *blockpool.Pool
	accessDelay time.Duration
}

// NewTable creates an inode table with `totalInodes` slots whose inodes store
// their data in `pool`. Every call to [Table.Get] sleeps for `accessDelay`.
func NewTable(totalInodes uint, pool *blockpool.Pool, accessDelay time.Duration) *Table {
	return &Table{
		inodes:      make([]Inode, totalInodes),
		allocator:   common.NewAllocator(totalInodes),
		pool:        pool,
		accessDelay: accessDelay,
	}
}

// Reset frees every slot. The next call to [Table.Create] returns
// [common.RootInumber]. Blocks aren't freed; reset the pool as well.
func (table *Table) Reset() {
	table.allocator.Reset()
}

// Len returns the capacity of the table.
func (table *Table) Len() uint {
	return uint(len(table.inodes))
}

// InUse returns the number of allocated inodes.
func (table *Table) InUse() uint {
	return table.allocator.InUse()
}

// Create allocates an empty inode of the given kind and returns its number.
func (table *Table) Create(kind common.InodeKind) (common.Inumber, error) {
	unit, err := table.allocator.AllocateSingle()
	if err != nil {
		return common.InvalidInumber, errors.ErrNoSpaceOnDevice.WithMessage("inode table is full")
	}

	table.inodes[unit].reset(kind)
	return common.Inumber(unit), nil
}

// Get returns the inode with the given number. The pointer stays valid for the
// lifetime of the table, but the caller must lock the inode before using it.
func (table *Table) Get(inumber common.Inumber) (*Inode, error) {
	if !table.isAllocated(inumber) {
		return nil, errors.Errorf(errors.ENOENT, "inode %d is not allocated", inumber)
	}

	if table.accessDelay > 0 {
		time.Sleep(table.accessDelay)
	}
	return &table.inodes[inumber], nil
}

// Delete frees all blocks referenced by an inode and releases its slot. The
// caller must hold the inode's write lock.
func (table *Table) Delete(inumber common.Inumber) error {
	if !table.isAllocated(inumber) {
		return errors.Errorf(errors.ENOENT, "inode %d is not allocated", inumber)
	}

	inode := &table.inodes[inumber]
	freeErr := inode.FreeBlocks(table.pool)
	if err := table.allocator.FreeSingle(common.UnitID(inumber)); err != nil {
		return err
	}
	return freeErr
}

func (table *Table) isAllocated(inumber common.Inumber) bool {
	if inumber < 0 || uint(inumber) >= table.Len() {
		return false
	}
	return table.allocator.IsAllocated(common.UnitID(inumber))
}
