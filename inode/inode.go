// Package inode implements the inode table and the mapping from an inode's
// logical block indices to blocks in the data block pool.
//
// Logical blocks 0 through [DirectBlocks]-1 are stored in the inode itself.
// Higher indices go through a single indirect block, a data block holding an
// array of block IDs (see [PointerBlock]).
//
// None of the methods on [Inode] lock anything. Callers must hold the inode's
// lock: a read lock for lookups, a write lock for anything that allocates or
// frees blocks.
package inode

import (
	"github.com/dargueta/tfs/blockpool"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
	"github.com/hashicorp/go-multierror"
)

type Inode struct {
	Kind common.InodeKind
	// Size is the logical length of the file in bytes. For directories it's
	// the extent of the allocated directory blocks.
	Size     int64
	Direct   [DirectBlocks]common.BlockID
	Indirect common.BlockID
}

func (inode *Inode) reset(kind common.InodeKind) {
	inode.Kind = kind
	inode.Size = 0
	for i := range inode.Direct {
		inode.Direct[i] = common.NoBlock
	}
	inode.Indirect = common.NoBlock
}

func (inode *Inode) IsDir() bool {
	return inode.Kind == common.KindDirectory
}

// pointerBlock returns a view of the inode's indirect block. The inode must
// have one.
func (inode *Inode) pointerBlock(pool *blockpool.Pool) (PointerBlock, error) {
	raw, err := pool.Get(inode.Indirect)
	if err != nil {
		return PointerBlock{}, err
	}
	return NewPointerBlock(raw), nil
}

// BlockID resolves a logical block index to a block in the pool. It returns
// [common.NoBlock] if the index is in range but hasn't been allocated yet.
func (inode *Inode) BlockID(pool *blockpool.Pool, index uint) (common.BlockID, error) {
	if index >= MaxBlocks(pool.BytesPerBlock()) {
		return common.NoBlock, errors.Errorf(
			errors.EFBIG,
			"logical block %d not in range [0, %d)",
			index,
			MaxBlocks(pool.BytesPerBlock()))
	}

	if index < DirectBlocks {
		return inode.Direct[index], nil
	}
	if inode.Indirect == common.NoBlock {
		return common.NoBlock, nil
	}

	pointers, err := inode.pointerBlock(pool)
	if err != nil {
		return common.NoBlock, err
	}
	return pointers.Get(int(index - DirectBlocks))
}

// BlockAt returns the storage of the logical block at `index`. Resolving a slot
// that hasn't been allocated fails with EUCLEAN.
func (inode *Inode) BlockAt(pool *blockpool.Pool, index uint) ([]byte, error) {
	id, err := inode.BlockID(pool, index)
	if err != nil {
		return nil, err
	}
	if id == common.NoBlock {
		return nil, errors.Errorf(errors.EUCLEAN, "logical block %d is not allocated", index)
	}
	return pool.Get(id)
}

// EnsureBlocks allocates every missing block in the logical range [0, count),
// allocating the indirect block the first time an index past the direct slots
// is needed.
//
// It returns the number of leading blocks that are allocated when it stops.
// This is `count` on success; if the pool runs out of space it's the index of
// the block that couldn't be allocated, and the blocks before it stay
// allocated.
func (inode *Inode) EnsureBlocks(pool *blockpool.Pool, count uint) (uint, error) {
	maxBlocks := MaxBlocks(pool.BytesPerBlock())
	if count > maxBlocks {
		return 0, errors.Errorf(
			errors.EFBIG, "can't address %d blocks, limit is %d", count, maxBlocks)
	}

	for i := uint(0); i < count && i < DirectBlocks; i++ {
		if inode.Direct[i] != common.NoBlock {
			continue
		}
		id, err := pool.Allocate()
		if err != nil {
			return i, err
		}
		inode.Direct[i] = id
	}

	if count <= DirectBlocks {
		return count, nil
	}

	if inode.Indirect == common.NoBlock {
		id, err := pool.Allocate()
		if err != nil {
			return DirectBlocks, err
		}
		inode.Indirect = id

		pointers, err := inode.pointerBlock(pool)
		if err != nil {
			return DirectBlocks, err
		}
		pointers.Clear()
	}

	pointers, err := inode.pointerBlock(pool)
	if err != nil {
		return DirectBlocks, err
	}

	for i := uint(DirectBlocks); i < count; i++ {
		slot := int(i - DirectBlocks)
		existing, err := pointers.Get(slot)
		if err != nil {
			return i, err
		}
		if existing != common.NoBlock {
			continue
		}

		id, err := pool.Allocate()
		if err != nil {
			return i, err
		}
		if err = pointers.Set(slot, id); err != nil {
			return i, err
		}
	}
	return count, nil
}

// FreeBlocks releases every block the inode references, including the indirect
// block, and resets its size to 0. It keeps going after a failure so that as
// many blocks as possible are returned to the pool; all failures are reported.
func (inode *Inode) FreeBlocks(pool *blockpool.Pool) error {
	var result *multierror.Error

	for i, id := range inode.Direct {
		if id == common.NoBlock {
			continue
		}
		if err := pool.Free(id); err != nil {
			result = multierror.Append(result, err)
		}
		inode.Direct[i] = common.NoBlock
	}

	if inode.Indirect != common.NoBlock {
		pointers, err := inode.pointerBlock(pool)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			for i := 0; i < pointers.Len(); i++ {
				id, _ := pointers.Get(i)
				if id == common.NoBlock {
					continue
				}
				if err := pool.Free(id); err != nil {
					result = multierror.Append(result, err)
				}
			}
		}

		if err := pool.Free(inode.Indirect); err != nil {
			result = multierror.Append(result, err)
		}
		inode.Indirect = common.NoBlock
	}

	inode.Size = 0
	return result.ErrorOrNil()
}

// CountBlocks returns the number of data blocks allocated to the inode, not
// counting the indirect block itself.
func (inode *Inode) CountBlocks(pool *blockpool.Pool) (uint, error) {
	total := uint(0)
	for _, id := range inode.Direct {
		if id != common.NoBlock {
			total++
		}
	}
	if inode.Indirect == common.NoBlock {
		return total, nil
	}

	pointers, err := inode.pointerBlock(pool)
	if err != nil {
		return total, err
	}
	for i := 0; i < pointers.Len(); i++ {
		id, _ := pointers.Get(i)
		if id != common.NoBlock {
			total++
		}
	}
	return total, nil
}
