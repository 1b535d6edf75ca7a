package allocator

import (
	"errors"
	"fmt"
)

// growHeap extends the break by one header plus size bytes and formats the new
// space as an allocated block. Exhaustion is fatal: the heap panics and must not
// be used afterwards.
func (h *Heap) growHeap(size uint32) uint32 {
	addr, err := h.brk.Extend(headerSize + size)
	if err != nil {
		h.exhausted(err, uint64(size))
	}

	b := h.header(addr)
	*b = newBlockHeader(size, blockAllocated)
	h.grows++

	h.logger.Debug().
		Uint32("block", addr).
		Uint32("size", size).
		Uint32("break", h.brk.Size()).
		Msg("grow heap")

	return addr
}

// appendBlock links addr as the new last block of the heap chain.
func (h *Heap) appendBlock(addr uint32) {
	if h.first == nullAddr {
		h.first = addr
		h.last = addr
		return
	}

	h.header(h.last).heapNext = addr
	h.header(addr).heapPrev = h.last
	h.last = addr
}

func (h *Heap) exhausted(err error, request uint64) {
	if !errors.Is(err, ErrHeapExhausted) {
		err = fmt.Errorf("%w: %v", ErrHeapExhausted, err)
	}
	h.logger.Error().
		Err(err).
		Uint64("request", request).
		Uint32("break", h.brk.Size()).
		Msg("heap growth failed")
	panic(err)
}
