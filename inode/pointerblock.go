package inode

import (
	"encoding/binary"

	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
)

// PointerBlock is a typed view of a data block whose contents are an array of
// little-endian block IDs. It doesn't copy the block; reads and writes go
// straight to the pool's storage.
type PointerBlock struct {
	raw []byte
}

// NewPointerBlock wraps a raw block. Trailing bytes that don't make up a whole
// pointer are ignored.
func NewPointerBlock(raw []byte) PointerBlock {
	return PointerBlock{raw: raw}
}

// Len returns the number of pointers in the block.
func (pb PointerBlock) Len() int {
	return len(pb.raw) / PointerSize
}

// Get returns the block ID stored at `index`.
func (pb PointerBlock) Get(index int) (common.BlockID, error) {
	if index < 0 || index >= pb.Len() {
		return common.NoBlock,
			errors.Errorf(errors.ERANGE, "pointer index %d not in range [0, %d)", index, pb.Len())
	}
	offset := index * PointerSize
	return common.BlockID(binary.LittleEndian.Uint32(pb.raw[offset : offset+PointerSize])), nil
}

// Set stores a block ID at `index`.
func (pb PointerBlock) Set(index int, block common.BlockID) error {
	if index < 0 || index >= pb.Len() {
		return errors.Errorf(errors.ERANGE, "pointer index %d not in range [0, %d)", index, pb.Len())
	}
	offset := index * PointerSize
	binary.LittleEndian.PutUint32(pb.raw[offset:offset+PointerSize], uint32(block))
	return nil
}

// Clear marks every pointer in the block as [common.NoBlock]. A freshly
// allocated block is all zeroes, which would otherwise read as block 0.
func (pb PointerBlock) Clear() {
	for i := 0; i < pb.Len(); i++ {
		_ = pb.Set(i, common.NoBlock)
	}
}
