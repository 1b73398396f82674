// Package openfile implements the open file table: a fixed number of slots,
// each binding an inode to a cursor.
//
// A handle encodes its slot and the slot's generation, which is bumped every
// time the slot is freed. A handle kept after Close therefore never matches the
// entry that later reuses its slot.
//
// Allocating and releasing slots is serialized by a table-wide lock. Each entry
// has its own mutex for its cursor, so I/O through different handles never
// contends at the table level.
package openfile

import (
	"sync"

	"github.com/dargueta/tfs/common"
	"github.com/dargueta/tfs/errors"
)

// Entry is one open file. Its inode number is fixed for the lifetime of the
// entry; the offset must only be touched while holding the entry's lock.
type Entry struct {
	mu      sync.Mutex
	handle  common.Handle
	inumber common.Inumber
	offset  int64
}

func (entry *Entry) Handle() common.Handle {
	return entry.handle
}

func (entry *Entry) Inumber() common.Inumber {
	return entry.inumber
}

// Lock acquires the entry's cursor lock. Reads and writes through one handle
// hold it for their whole duration.
func (entry *Entry) Lock() {
	entry.mu.Lock()
}

func (entry *Entry) Unlock() {
	entry.mu.Unlock()
}

// Offset returns the cursor position. The caller must hold the entry's lock.
func (entry *Entry) Offset() int64 {
	return entry.offset
}

// SetOffset moves the cursor. The caller must hold the entry's lock.
func (entry *Entry) SetOffset(offset int64) {
	entry.offset = offset
}

// Advance moves the cursor forward by `n` bytes. The caller must hold the
// entry's lock.
func (entry *Entry) Advance(n int) {
	entry.offset += int64(n)
}

type Table struct {
	mu          sync.RWMutex
	entries     []*Entry
	generations []int
	inUse       int
}

// NewTable creates a table with room for `maxOpenFiles` handles.
func NewTable(maxOpenFiles uint) *Table {
	return &Table{
		entries:     make([]*Entry, maxOpenFiles),
		generations: make([]int, maxOpenFiles),
	}
}

// Len returns the capacity of the table.
func (table *Table) Len() int {
	return len(table.entries)
}

// Reset drops every entry. Handles issued before the reset become invalid.
func (table *Table) Reset() {
	table.mu.Lock()
	defer table.mu.Unlock()

	for i, entry := range table.entries {
		if entry != nil {
			table.entries[i] = nil
			table.generations[i]++
		}
	}
	table.inUse = 0
}

// Insert registers a new open file for `inumber` with its cursor at `offset`
// and returns its handle. The lowest free slot is used. It fails with ENFILE if
// the table is full.
func (table *Table) Insert(inumber common.Inumber, offset int64) (common.Handle, error) {
	table.mu.Lock()
	defer table.mu.Unlock()

	for i, entry := range table.entries {
		if entry != nil {
			continue
		}
		handle := common.Handle(table.generations[i]*len(table.entries) + i)
		table.entries[i] = &Entry{handle: handle, inumber: inumber, offset: offset}
		table.inUse++
		return handle, nil
	}
	return common.InvalidHandle, errors.Errorf(
		errors.ENFILE, "all %d open file slots are in use", len(table.entries))
}

// Get returns the entry for an open handle. Closed or out-of-range handles
// fail with ENOENT.
func (table *Table) Get(handle common.Handle) (*Entry, error) {
	table.mu.RLock()
	defer table.mu.RUnlock()

	slot, ok := table.slotOf(handle)
	if !ok {
		return nil, errors.Errorf(errors.ENOENT, "file handle %d is not open", handle)
	}
	return table.entries[slot], nil
}

// slotOf returns the slot holding the live entry for `handle`. The caller must
// hold the table lock.
func (table *Table) slotOf(handle common.Handle) (int, bool) {
	if handle < 0 || len(table.entries) == 0 {
		return 0, false
	}
	slot := int(handle) % len(table.entries)
	entry := table.entries[slot]
	if entry == nil || entry.handle != handle {
		return 0, false
	}
	return slot, true
}

// Remove frees a handle's slot.
func (table *Table) Remove(handle common.Handle) error {
	table.mu.Lock()
	defer table.mu.Unlock()

	slot, ok := table.slotOf(handle)
	if !ok {
		return errors.Errorf(errors.ENOENT, "file handle %d is not open", handle)
	}
	table.entries[slot] = nil
	table.generations[slot]++
	table.inUse--
	return nil
}

// OpenCount returns how many handles currently refer to `inumber`.
func (table *Table) OpenCount(inumber common.Inumber) int {
	table.mu.RLock()
	defer table.mu.RUnlock()

	count := 0
	for _, entry := range table.entries {
		if entry != nil && entry.inumber == inumber {
			count++
		}
	}
	return count
}

// Handles returns every open handle in slot order.
func (table *Table) Handles() []common.Handle {
	table.mu.RLock()
	defer table.mu.RUnlock()

	handles := make([]common.Handle, 0, table.inUse)
	for _, entry := range table.entries {
		if entry != nil {
			handles = append(handles, entry.handle)
		}
	}
	return handles
}
