package inode_test

import (
	"testing"

	"github.com/dargueta/tfs/blockpool"
	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
	"github.com/dargueta/tfs/inode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 64-byte blocks give 16 pointers per indirect block, so an inode tops out at
// 26 data blocks.
func newFixture(t *testing.T, totalBlocks uint) (*blockpool.Pool, *inode.Table) {
	pool := blockpool.New(64, totalBlocks, 0)
	table := inode.NewTable(8, pool, 0)
	return pool, table
}

func TestGeometry(t *testing.T) {
	assert.EqualValues(t, 256, inode.PointersPerBlock(1024))
	assert.EqualValues(t, 266, inode.MaxBlocks(1024))
	assert.EqualValues(t, 266*1024, inode.MaxFileSize(1024))
	assert.EqualValues(t, 0, inode.LengthToNumBlocks(0, 1024))
	assert.EqualValues(t, 1, inode.LengthToNumBlocks(1, 1024))
	assert.EqualValues(t, 1, inode.LengthToNumBlocks(1024, 1024))
	assert.EqualValues(t, 11, inode.LengthToNumBlocks(10300, 1024))
}

func TestTable__RootIsFirst(t *testing.T) {
	_, table := newFixture(t, 32)

	root, err := table.Create(common.KindDirectory)
	require.NoError(t, err)
	assert.Equal(t, common.RootInumber, root)

	next, err := table.Create(common.KindFile)
	require.NoError(t, err)
	assert.NotEqual(t, root, next)

	table.Reset()
	root, err = table.Create(common.KindDirectory)
	require.NoError(t, err)
	assert.Equal(t, common.RootInumber, root, "root must be reserved after a reset")
}

func TestTable__CreateInitializesInode(t *testing.T) {
	_, table := newFixture(t, 32)
	inumber, err := table.Create(common.KindFile)
	require.NoError(t, err)

	ino, err := table.Get(inumber)
	require.NoError(t, err)
	assert.Equal(t, common.KindFile, ino.Kind)
	assert.False(t, ino.IsDir())
	assert.EqualValues(t, 0, ino.Size)
	assert.Equal(t, common.NoBlock, ino.Indirect)
	for i, id := range ino.Direct {
		assert.Equalf(t, common.NoBlock, id, "direct slot %d not empty", i)
	}
}

func TestTable__Exhausted(t *testing.T) {
	_, table := newFixture(t, 32)
	for i := uint(0); i < table.Len(); i++ {
		_, err := table.Create(common.KindFile)
		require.NoError(t, err)
	}

	_, err := table.Create(common.KindFile)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.EqualValues(t, table.Len(), table.InUse())
}

func TestTable__GetInvalid(t *testing.T) {
	_, table := newFixture(t, 32)

	_, err := table.Get(0)
	assert.ErrorIs(t, err, errors.ErrNotFound, "free slot must not resolve")
	_, err = table.Get(-1)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	_, err = table.Get(100)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestTable__DeleteFreesBlocks(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, err := table.Create(common.KindFile)
	require.NoError(t, err)
	ino, _ := table.Get(inumber)

	n, err := ino.EnsureBlocks(pool, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 20, n)
	// 20 data blocks plus the indirect block.
	assert.EqualValues(t, 64-21, pool.FreeBlocks())

	require.NoError(t, table.Delete(inumber))
	assert.EqualValues(t, 64, pool.FreeBlocks())
	assert.EqualValues(t, 0, table.InUse())

	_, err = table.Get(inumber)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.ErrorIs(t, table.Delete(inumber), errors.ErrNotFound)
}

func TestInode__EnsureBlocks__DirectOnly(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	n, err := ino.EnsureBlocks(pool, inode.DirectBlocks)
	require.NoError(t, err)
	assert.EqualValues(t, inode.DirectBlocks, n)
	assert.Equal(t, common.NoBlock, ino.Indirect, "indirect block allocated too early")

	count, err := ino.CountBlocks(pool)
	require.NoError(t, err)
	assert.EqualValues(t, inode.DirectBlocks, count)
}

// Crossing from block 9 to block 10 must allocate the indirect block plus one
// data block.
func TestInode__EnsureBlocks__CrossIntoIndirect(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	_, err := ino.EnsureBlocks(pool, inode.DirectBlocks)
	require.NoError(t, err)
	before := pool.FreeBlocks()

	n, err := ino.EnsureBlocks(pool, inode.DirectBlocks+1)
	require.NoError(t, err)
	assert.EqualValues(t, inode.DirectBlocks+1, n)
	assert.NotEqual(t, common.NoBlock, ino.Indirect)
	assert.EqualValues(t, before-2, pool.FreeBlocks())

	block, err := ino.BlockAt(pool, inode.DirectBlocks)
	require.NoError(t, err)
	assert.Len(t, block, 64)

	_, err = ino.BlockAt(pool, inode.DirectBlocks+1)
	assert.ErrorIs(t, err, errors.ErrInvalidBlock)
}

func TestInode__EnsureBlocks__Idempotent(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	_, err := ino.EnsureBlocks(pool, 15)
	require.NoError(t, err)
	firstID, _ := ino.BlockID(pool, 12)
	free := pool.FreeBlocks()

	_, err = ino.EnsureBlocks(pool, 15)
	require.NoError(t, err)
	secondID, _ := ino.BlockID(pool, 12)
	assert.Equal(t, firstID, secondID)
	assert.Equal(t, free, pool.FreeBlocks())
}

func TestInode__EnsureBlocks__TooLarge(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	_, err := ino.EnsureBlocks(pool, inode.MaxBlocks(64)+1)
	assert.ErrorIs(t, err, errors.ErrFileTooLarge)

	n, err := ino.EnsureBlocks(pool, inode.MaxBlocks(64))
	require.NoError(t, err)
	assert.EqualValues(t, inode.MaxBlocks(64), n)
}

// When the pool runs dry, blocks allocated so far stay with the inode and the
// count tells the caller how far it got.
func TestInode__EnsureBlocks__PoolExhausted(t *testing.T) {
	pool, table := newFixture(t, 5)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	n, err := ino.EnsureBlocks(pool, 8)
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
	assert.EqualValues(t, 5, n)

	count, _ := ino.CountBlocks(pool)
	assert.EqualValues(t, 5, count)

	require.NoError(t, ino.FreeBlocks(pool))
	assert.EqualValues(t, 5, pool.FreeBlocks())
}

func TestInode__FreeBlocksResetsInode(t *testing.T) {
	pool, table := newFixture(t, 64)
	inumber, _ := table.Create(common.KindFile)
	ino, _ := table.Get(inumber)

	_, err := ino.EnsureBlocks(pool, 12)
	require.NoError(t, err)
	ino.Size = 12 * 64

	require.NoError(t, ino.FreeBlocks(pool))
	assert.EqualValues(t, 0, ino.Size)
	assert.Equal(t, common.NoBlock, ino.Indirect)
	assert.EqualValues(t, 64, pool.FreeBlocks())

	count, err := ino.CountBlocks(pool)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestPointerBlock(t *testing.T) {
	raw := make([]byte, 18)
	pointers := inode.NewPointerBlock(raw)
	assert.Equal(t, 4, pointers.Len(), "trailing partial pointer must be ignored")

	pointers.Clear()
	for i := 0; i < pointers.Len(); i++ {
		id, err := pointers.Get(i)
		require.NoError(t, err)
		assert.Equal(t, common.NoBlock, id)
	}

	require.NoError(t, pointers.Set(2, 0x01020304))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, raw[8:12], "pointers are little-endian")

	id, err := pointers.Get(2)
	require.NoError(t, err)
	assert.EqualValues(t, 0x01020304, id)

	_, err = pointers.Get(4)
	assert.ErrorIs(t, err, errors.ErrOutOfRange)
	assert.ErrorIs(t, pointers.Set(-1, 0), errors.ErrOutOfRange)
}
