// Package allocator implements malloc, calloc, realloc and free on top of a
// single primitive that extends a contiguous region at its end.
//
// A Heap is not safe for concurrent use.
package allocator

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/rs/zerolog"
)

// Config ...
type Config struct {
	// MemLimit is the size of the Arena built when Break is nil.
	MemLimit int

	// Break overrides the default Arena. It must be empty.
	Break Break

	// Logger receives growth, split and merge events. Nil disables logging.
	Logger *zerolog.Logger
}

// Heap owns the block chain and the free list built on one Break.
type Heap struct {
	brk    Break
	logger zerolog.Logger

	first uint32
	last  uint32
	free  freeList

	memoryUsage uint64
	grows       uint64
}

func validateConfig(conf Config) {
	if conf.Break == nil {
		checkMemLimit(conf.MemLimit)
		return
	}
	if conf.Break.Size() != 0 {
		panic("Break must be empty")
	}
}

// New ...
func New(conf Config) *Heap {
	validateConfig(conf)

	brk := conf.Break
	if brk == nil {
		brk = NewArena(conf.MemLimit)
	}

	logger := zerolog.Nop()
	if conf.Logger != nil {
		logger = *conf.Logger
	}

	return &Heap{
		brk:    brk,
		logger: logger,

		first: nullAddr,
		last:  nullAddr,
		free:  newFreeList(brk),

		memoryUsage: 0,
	}
}

func (h *Heap) header(addr uint32) *blockHeader {
	return headerAt(h.brk, addr)
}

// Allocate returns a payload of at least size bytes, 8-byte aligned, with unspecified contents.
// It fails only for size <= 0. A request the break cannot satisfy panics.
func (h *Heap) Allocate(size int) (Ptr, bool) {
	if size <= 0 {
		return NullPtr, false
	}
	if uint64(size) > maxPayload {
		h.exhausted(fmt.Errorf("%w: request of %d bytes exceeds the address space", ErrHeapExhausted, size), uint64(size))
	}

	aligned := uint32(Align(uint64(size)))

	addr, ok := h.takeFree(aligned)
	if !ok {
		addr = h.growHeap(aligned)
		h.appendBlock(addr)
	}

	h.memoryUsage += uint64(h.header(addr).size)
	return payloadOf(addr), true
}

// AllocateZeroed allocates count elements of elemSize bytes each, every element
// rounded up to the word size, and zeroes the whole payload.
// Non-positive arguments and overflowing products fail.
func (h *Heap) AllocateZeroed(count int, elemSize int) (Ptr, bool) {
	if count <= 0 || elemSize <= 0 {
		return NullPtr, false
	}

	elem := Align(uint64(elemSize))
	if uint64(count) > maxPayload/elem {
		return NullPtr, false
	}
	total := uint64(count) * elem
	if total > math.MaxInt {
		return NullPtr, false
	}

	ptr, ok := h.Allocate(int(total))
	if !ok {
		return NullPtr, false
	}
	clear(h.Bytes(ptr))
	return ptr, true
}

// Reallocate resizes the payload at ptr.
//
// A null ptr allocates, a zero newSize frees and returns (NullPtr, false). A block that
// already holds newSize is returned as is. Otherwise the contents move to a new
// block and the old one is freed.
func (h *Heap) Reallocate(ptr Ptr, newSize int) (Ptr, bool) {
	if ptr == NullPtr {
		return h.Allocate(newSize)
	}
	if newSize == 0 {
		h.Free(ptr)
		return NullPtr, false
	}
	if newSize < 0 {
		return NullPtr, false
	}

	oldSize := h.header(blockOf(ptr)).size
	if uint64(oldSize) >= Align(uint64(newSize)) {
		return ptr, true
	}

	newPtr, ok := h.Allocate(newSize)
	if !ok {
		return NullPtr, false
	}
	copy(h.Bytes(newPtr), h.Bytes(ptr))
	h.Free(ptr)

	return newPtr, true
}

// Free returns the block at ptr to the free list, merging it with free
// neighbours on both sides. Null pointers and an untouched heap are ignored.
func (h *Heap) Free(ptr Ptr) {
	if ptr == NullPtr || h.first == nullAddr {
		return
	}

	addr := blockOf(ptr)
	b := h.header(addr)
	h.memoryUsage -= uint64(b.size)
	b.state = blockFree

	if next := b.heapNext; next != nullAddr && h.header(next).state == blockFree {
		h.free.remove(next)
		h.mergeNext(addr)
	}

	if prev := b.heapPrev; prev != nullAddr && h.header(prev).state == blockFree {
		h.free.remove(prev)
		h.mergeNext(prev)
		addr = prev
	}

	h.free.insert(addr)
}

// Bytes returns the whole payload at ptr. It aliases heap memory.
func (h *Heap) Bytes(ptr Ptr) []byte {
	if ptr == NullPtr {
		return nil
	}
	size := h.header(blockOf(ptr)).size
	return unsafe.Slice((*byte)(toRealAddr(h.brk, uint32(ptr))), size)
}

// UsableSize returns the payload size of the block at ptr, which may exceed the requested size.
func (h *Heap) UsableSize(ptr Ptr) uint32 {
	if ptr == NullPtr {
		return 0
	}
	return h.header(blockOf(ptr)).size
}

// GetMemUsage returns the payload bytes currently handed out.
func (h *Heap) GetMemUsage() uint64 {
	return h.memoryUsage
}

// Close releases the break. Every payload becomes invalid.
func (h *Heap) Close() error {
	h.first = nullAddr
	h.last = nullAddr
	h.free = newFreeList(h.brk)
	h.memoryUsage = 0
	return h.brk.Close()
}
