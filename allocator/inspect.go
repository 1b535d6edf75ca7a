package allocator

import "fmt"

// Stats ...
type Stats struct {
	HeapSize       uint32 // bytes between the base and the break, headers included
	Blocks         int
	FreeBlocks     int
	AllocatedBytes uint64
	FreeBytes      uint64
	LargestFree    uint32
	Grows          uint64
}

// BlockInfo describes one block of the heap chain.
type BlockInfo struct {
	Ptr  Ptr
	Size uint32
	Free bool
}

// Blocks walks the heap chain in address order.
func (h *Heap) Blocks() []BlockInfo {
	var result []BlockInfo
	addr := h.first
	for addr != nullAddr {
		b := h.header(addr)
		result = append(result, BlockInfo{
			Ptr:  payloadOf(addr),
			Size: b.size,
			Free: b.state == blockFree,
		})
		addr = b.heapNext
	}
	return result
}

// FreeList returns the payloads of the free blocks in search order.
func (h *Heap) FreeList() []Ptr {
	var result []Ptr
	for _, addr := range h.free.contentOfList() {
		result = append(result, payloadOf(addr))
	}
	return result
}

// Stats ...
func (h *Heap) Stats() Stats {
	s := Stats{
		HeapSize: h.brk.Size(),
		Grows:    h.grows,
	}
	for _, b := range h.Blocks() {
		s.Blocks++
		if !b.Free {
			s.AllocatedBytes += uint64(b.Size)
			continue
		}
		s.FreeBlocks++
		s.FreeBytes += uint64(b.Size)
		if b.Size > s.LargestFree {
			s.LargestFree = b.Size
		}
	}
	return s
}

func corrupted(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}

// Check walks the heap chain and the free list and reports the first broken invariant.
func (h *Heap) Check() error {
	end := uint64(h.brk.Size())

	prev := nullAddr
	expected := uint32(0)
	prevFree := false
	freeBlocks := 0

	addr := h.first
	for addr != nullAddr {
		if addr != expected {
			return corrupted("block at %d, expected %d", addr, expected)
		}
		if uint64(addr)+uint64(headerSize) > end {
			return corrupted("block at %d passes the break %d", addr, end)
		}

		b := h.header(addr)
		if b.magic != blockMagic {
			return corrupted("bad magic %#x at %d", b.magic, addr)
		}
		if b.heapPrev != prev {
			return corrupted("block at %d links back to %d, expected %d", addr, b.heapPrev, prev)
		}
		if b.size%WordSize != 0 {
			return corrupted("block at %d has unaligned size %d", addr, b.size)
		}
		if uint64(addr)+uint64(headerSize)+uint64(b.size) > end {
			return corrupted("block at %d of size %d passes the break %d", addr, b.size, end)
		}

		isFree := false
		switch b.state {
		case blockFree:
			isFree = true
			freeBlocks++
		case blockAllocated:
		default:
			return corrupted("block at %d has unknown state %d", addr, b.state)
		}
		if isFree && prevFree {
			return corrupted("adjacent free blocks at %d and %d", prev, addr)
		}

		prevFree = isFree
		prev = addr
		expected = addr + headerSize + b.size
		addr = b.heapNext
	}

	if prev != h.last {
		return corrupted("chain ends at %d, last is %d", prev, h.last)
	}
	if uint64(expected) != end {
		return corrupted("chain covers %d bytes, break at %d", expected, end)
	}

	return h.checkFreeList(freeBlocks)
}

func (h *Heap) checkFreeList(freeBlocks int) error {
	end := uint64(h.brk.Size())

	count := 0
	prev := nullAddr
	addr := h.free.head
	for addr != nullAddr {
		if count >= freeBlocks {
			return corrupted("free list longer than the %d free blocks", freeBlocks)
		}
		if uint64(addr)+uint64(headerSize) > end {
			return corrupted("free block at %d passes the break %d", addr, end)
		}

		b := h.header(addr)
		if b.magic != blockMagic {
			return corrupted("bad magic %#x at free block %d", b.magic, addr)
		}
		if b.state != blockFree {
			return corrupted("allocated block at %d in free list", addr)
		}
		if b.freePrev != prev {
			return corrupted("free block at %d links back to %d, expected %d", addr, b.freePrev, prev)
		}

		count++
		prev = addr
		addr = b.freeNext
	}

	if count != freeBlocks {
		return corrupted("free list holds %d blocks, chain has %d", count, freeBlocks)
	}
	if count != h.free.size {
		return corrupted("free list holds %d blocks, counted %d", count, h.free.size)
	}
	return nil
}
