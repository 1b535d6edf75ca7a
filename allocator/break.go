package allocator

import (
	"fmt"
	"unsafe"
)

// Break is a contiguous region of memory that only grows at its end.
// It is the single primitive the heap is built on.
type Break interface {
	// Extend moves the break n bytes forward and returns the offset of the old break.
	// Errors wrap ErrHeapExhausted.
	Extend(n uint32) (uint32, error)

	// Base returns the address of offset 0. It never changes while the break is open.
	Base() unsafe.Pointer

	// Size returns the current break offset.
	Size() uint32

	// Close releases the region. Payloads must not be touched afterwards.
	Close() error
}

func toRealAddr(brk Break, addr uint32) unsafe.Pointer {
	return unsafe.Add(brk.Base(), addr)
}

func checkMemLimit(limit int) {
	if limit <= 0 {
		panic("MemLimit must > 0")
	}
	if uint64(limit) > maxMemLimit {
		panic("MemLimit must < 4GB")
	}
}

// Arena ...
type Arena struct {
	data  []uint64
	limit uint32
	brk   uint32
}

var _ Break = &Arena{}

func allocateData(limit uint32) []uint64 {
	return make([]uint64, limit/WordSize)
}

// NewArena reserves limit bytes from the Go heap up front.
func NewArena(limit int) *Arena {
	checkMemLimit(limit)

	alignedLimit := uint32(Align(uint64(limit)))
	return &Arena{
		data:  allocateData(alignedLimit),
		limit: alignedLimit,
		brk:   0,
	}
}

// Extend ...
func (a *Arena) Extend(n uint32) (uint32, error) {
	if uint64(a.brk)+uint64(n) > uint64(a.limit) {
		return 0, fmt.Errorf("%w: arena limit %d, break %d, requested %d", ErrHeapExhausted, a.limit, a.brk, n)
	}
	old := a.brk
	a.brk += n
	return old, nil
}

// Base ...
func (a *Arena) Base() unsafe.Pointer {
	return unsafe.Pointer(&a.data[0])
}

// Size ...
func (a *Arena) Size() uint32 {
	return a.brk
}

// Limit ...
func (a *Arena) Limit() uint32 {
	return a.limit
}

// Close ...
func (a *Arena) Close() error {
	a.data = nil
	a.limit = 0
	a.brk = 0
	return nil
}
