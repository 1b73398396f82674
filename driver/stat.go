package driver

import (
	"os"
	"strings"
	"time"

	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/directory"
)

// FileStat describes an inode at the time it was examined.
type FileStat struct {
	Inumber   common.Inumber
	Kind      common.InodeKind
	Size      int64
	BlockSize uint
	// NumBlocks is the number of data blocks allocated to the inode, not
	// counting its indirect block.
	NumBlocks uint
}

func (stat FileStat) IsDir() bool {
	return stat.Kind == common.KindDirectory
}

func (stat FileStat) IsFile() bool {
	return stat.Kind == common.KindFile
}

// FileInfo wraps a [FileStat] to implement the [os.FileInfo] interface.
type FileInfo struct {
	FileStat
	name string
}

// os.FileInfo implementation --------------------------------------------------

// Name returns the entry name. Slashes after the leading one are part of it.
func (info FileInfo) Name() string {
	return strings.TrimPrefix(info.name, directory.Separator)
}

func (info FileInfo) Size() int64 {
	return info.FileStat.Size
}

// Mode returns the type bits only. The engine has no permissions.
func (info FileInfo) Mode() os.FileMode {
	if info.FileStat.IsDir() {
		return os.ModeDir
	}
	return 0
}

// ModTime always returns the zero time. Timestamps aren't tracked.
func (info FileInfo) ModTime() time.Time {
	return time.Time{}
}

func (info FileInfo) IsDir() bool {
	return info.FileStat.IsDir()
}

func (info FileInfo) Sys() any {
	return info.FileStat
}
