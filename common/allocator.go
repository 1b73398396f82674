// Bitmap allocator with a free list

package common

import (
	"fmt"
	"sync"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/tfs/errors"
)

type UnitID uint32

// Allocator hands out unit indices in the range [0, TotalUnits). The bitmap
// records which units are in use; the free list makes allocation and freeing
// constant-time. Units are handed out lowest index first after a reset.
//
// Allocator is safe for concurrent use.
type Allocator struct {
	mu               sync.Mutex
	allocationBitmap bitmap.Bitmap
	freeList         []UnitID
	inUse            uint
	TotalUnits       uint
}

// NewAllocator creates a new allocator with all units free.
func NewAllocator(totalUnits uint) *Allocator {
	alloc := &Allocator{TotalUnits: totalUnits}
	alloc.Reset()
	return alloc
}

// Reset marks every unit as free.
func (alloc *Allocator) Reset() {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()

	alloc.allocationBitmap = bitmap.New(int(alloc.TotalUnits))
	alloc.freeList = make([]UnitID, alloc.TotalUnits)

	// The free list is a stack, so push in descending order to pop unit 0
	// first.
	for i := uint(0); i < alloc.TotalUnits; i++ {
		alloc.freeList[i] = UnitID(alloc.TotalUnits - 1 - i)
	}
	alloc.inUse = 0
}

// AllocateSingle allocates a free unit and returns its index. If no units are
// available, it returns an error with code ENOSPC.
func (alloc *Allocator) AllocateSingle() (UnitID, error) {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()

	last := len(alloc.freeList) - 1
	if last < 0 {
		return 0, errors.Errorf(errors.ENOSPC, "all %d units are in use", alloc.TotalUnits)
	}

	unit := alloc.freeList[last]
	alloc.freeList = alloc.freeList[:last]
	alloc.allocationBitmap.Set(int(unit), true)
	alloc.inUse++
	return unit, nil
}

// FreeSingle frees an allocated unit. Trying to free a unit that isn't allocated
// will return the errno code EALREADY.
func (alloc *Allocator) FreeSingle(unit UnitID) error {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()

	if uint(unit) >= alloc.TotalUnits {
		msg := fmt.Sprintf(
			"invalid unit id: %d not in range [0, %d)",
			unit,
			alloc.TotalUnits)
		return errors.NewWithMessage(errors.ERANGE, msg)
	}
	if !alloc.allocationBitmap.Get(int(unit)) {
		msg := fmt.Sprintf("unit %d is already free", unit)
		return errors.NewWithMessage(errors.EALREADY, msg)
	}

	alloc.allocationBitmap.Set(int(unit), false)
	alloc.freeList = append(alloc.freeList, unit)
	alloc.inUse--
	return nil
}

// IsAllocated reports whether `unit` is currently handed out. Out-of-range
// units are never allocated.
func (alloc *Allocator) IsAllocated(unit UnitID) bool {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()

	if uint(unit) >= alloc.TotalUnits {
		return false
	}
	return alloc.allocationBitmap.Get(int(unit))
}

// InUse returns the number of allocated units.
func (alloc *Allocator) InUse() uint {
	alloc.mu.Lock()
	defer alloc.mu.Unlock()
	return alloc.inUse
}

// Available returns the number of free units.
func (alloc *Allocator) Available() uint {
	return alloc.TotalUnits - alloc.InUse()
}
