package inode

// DirectBlocks is the number of block slots stored in the inode itself.
const DirectBlocks = 10

// PointerSize is the size of one block ID inside an indirect block, in bytes.
const PointerSize = 4

// PointersPerBlock gives how many block IDs fit in one indirect block.
func PointersPerBlock(bytesPerBlock uint) uint {
	return bytesPerBlock / PointerSize
}

// MaxBlocks is the number of data blocks a single inode can address: the direct
// slots plus one indirect block's worth of pointers.
func MaxBlocks(bytesPerBlock uint) uint {
	return DirectBlocks + PointersPerBlock(bytesPerBlock)
}

// MaxFileSize is the largest size a file can grow to, in bytes.
func MaxFileSize(bytesPerBlock uint) int64 {
	return int64(MaxBlocks(bytesPerBlock)) * int64(bytesPerBlock)
}

// LengthToNumBlocks gives the minimum number of blocks required to hold the
// given number of bytes.
func LengthToNumBlocks(size int64, bytesPerBlock uint) uint {
	return uint((size + int64(bytesPerBlock) - 1) / int64(bytesPerBlock))
}
