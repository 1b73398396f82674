// Package blockpool implements the engine's data block storage: a fixed-size
// arena of equally sized blocks addressed by [common.BlockID].
//
// The pool serializes allocation and freeing internally, but never the block
// contents. A caller must hold the lock of the inode that owns a block before
// reading or modifying it.
package blockpool

import (
	"time"

	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
)

type Pool struct {
	bytesPerBlock uint
	totalBlocks   uint
	accessDelay   time.Duration
	data          []byte
	allocator     *common.Allocator
}

// New creates a pool of `totalBlocks` blocks of `bytesPerBlock` bytes each.
// Every call to [Pool.Get] sleeps for `accessDelay` to emulate slow storage.
func New(bytesPerBlock, totalBlocks uint, accessDelay time.Duration) *Pool {
	return &Pool{
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
		accessDelay:   accessDelay,
		data:          make([]byte, bytesPerBlock*totalBlocks),
		allocator:     common.NewAllocator(totalBlocks),
	}
}

// BytesPerBlock returns the size of a single block, in bytes.
func (pool *Pool) BytesPerBlock() uint {
	return pool.bytesPerBlock
}

// TotalBlocks returns the capacity of the pool, in blocks.
func (pool *Pool) TotalBlocks() uint {
	return pool.totalBlocks
}

// FreeBlocks returns the number of blocks available for allocation.
func (pool *Pool) FreeBlocks() uint {
	return pool.allocator.Available()
}

// Reset frees every block. Block contents aren't cleared here since they're
// zeroed on allocation.
func (pool *Pool) Reset() {
	pool.allocator.Reset()
}

// Allocate reserves a block and returns its ID. The block's contents are zeroed.
// It fails with ENOSPC if every block is in use.
func (pool *Pool) Allocate() (common.BlockID, error) {
	unit, err := pool.allocator.AllocateSingle()
	if err != nil {
		return common.NoBlock, errors.ErrNoSpaceOnDevice.WithMessage("no free data blocks")
	}

	block := pool.slice(common.BlockID(unit))
	for i := range block {
		block[i] = 0
	}
	return common.BlockID(unit), nil
}

// Free returns a block to the pool.
func (pool *Pool) Free(block common.BlockID) error {
	return pool.allocator.FreeSingle(common.UnitID(block))
}

// Get returns a writable view of a block's storage. The slice is exactly one
// block long and aliases the pool, so modifications are visible to later calls.
// Requesting a block that isn't allocated fails with EUCLEAN.
func (pool *Pool) Get(block common.BlockID) ([]byte, error) {
	if block == common.NoBlock || !pool.allocator.IsAllocated(common.UnitID(block)) {
		return nil, errors.Errorf(errors.EUCLEAN, "block %d is not allocated", block)
	}

	if pool.accessDelay > 0 {
		time.Sleep(pool.accessDelay)
	}
	return pool.slice(block), nil
}

func (pool *Pool) slice(block common.BlockID) []byte {
	start := uint(block) * pool.bytesPerBlock
	return pool.data[start : start+pool.bytesPerBlock : start+pool.bytesPerBlock]
}
