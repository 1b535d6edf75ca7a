package allocator

// freeList is the registry of free blocks, newest first.
type freeList struct {
	brk  Break
	head uint32
	size int
}

func newFreeList(brk Break) freeList {
	return freeList{
		brk:  brk,
		head: nullAddr,
		size: 0,
	}
}

func (l *freeList) insert(addr uint32) {
	b := headerAt(l.brk, addr)
	b.state = blockFree

	if l.head != nullAddr {
		headerAt(l.brk, l.head).freePrev = addr
	}

	b.freeNext = l.head
	b.freePrev = nullAddr
	l.head = addr
	l.size++
}

func (l *freeList) remove(addr uint32) {
	b := headerAt(l.brk, addr)

	if b.freeNext != nullAddr {
		headerAt(l.brk, b.freeNext).freePrev = b.freePrev
	}

	if b.freePrev != nullAddr {
		headerAt(l.brk, b.freePrev).freeNext = b.freeNext
	} else {
		l.head = b.freeNext
	}

	b.freePrev = nullAddr
	b.freeNext = nullAddr
	l.size--
}

// find returns the first block in list order whose payload holds size bytes.
func (l *freeList) find(size uint32) uint32 {
	addr := l.head
	for addr != nullAddr {
		b := headerAt(l.brk, addr)
		if b.size >= size {
			return addr
		}
		addr = b.freeNext
	}
	return nullAddr
}

func (l *freeList) contentOfList() []uint32 {
	var result []uint32
	addr := l.head
	for addr != nullAddr {
		result = append(result, addr)
		addr = headerAt(l.brk, addr).freeNext
	}
	return result
}

// takeFree removes the first fitting block from the free list and marks it allocated.
// When the leftover can hold a header plus one word, the tail is split off and
// registered as a new free block; otherwise the leftover stays as padding.
func (h *Heap) takeFree(size uint32) (uint32, bool) {
	addr := h.free.find(size)
	if addr == nullAddr {
		return 0, false
	}

	h.free.remove(addr)
	b := h.header(addr)
	b.state = blockAllocated

	if b.size-size >= headerSize+WordSize {
		h.split(addr, size)
	}
	return addr, true
}

func (h *Heap) split(addr uint32, size uint32) {
	b := h.header(addr)

	tailAddr := addr + headerSize + size
	tail := h.header(tailAddr)
	*tail = newBlockHeader(b.size-size-headerSize, blockFree)
	tail.heapPrev = addr
	tail.heapNext = b.heapNext

	if b.heapNext != nullAddr {
		h.header(b.heapNext).heapPrev = tailAddr
	} else {
		h.last = tailAddr
	}
	b.heapNext = tailAddr
	b.size = size

	h.free.insert(tailAddr)

	h.logger.Debug().
		Uint32("block", addr).
		Uint32("size", size).
		Uint32("tail", tailAddr).
		Uint32("tail_size", tail.size).
		Msg("split free block")
}

// mergeNext absorbs the heap-order successor of addr, header included.
func (h *Heap) mergeNext(addr uint32) {
	b := h.header(addr)
	nextAddr := b.heapNext
	next := h.header(nextAddr)

	b.size += next.size + headerSize
	b.heapNext = next.heapNext
	if b.heapNext != nullAddr {
		h.header(b.heapNext).heapPrev = addr
	} else {
		h.last = addr
	}
	next.magic = 0

	h.logger.Debug().
		Uint32("block", addr).
		Uint32("absorbed", nextAddr).
		Uint32("size", b.size).
		Msg("merge free blocks")
}
