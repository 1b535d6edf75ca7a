package allocator

import (
	"math"
	"unsafe"
)

const nullAddr uint32 = math.MaxUint32

const blockMagic uint32 = 0x62726b31

type blockState uint32

const (
	blockAllocated blockState = 0
	blockFree      blockState = 1
)

// Ptr is the offset of a payload from the heap base.
type Ptr uint32

// NullPtr is never a valid payload: every payload sits at least one header past the base.
const NullPtr Ptr = 0

// blockHeader precedes every payload. Heap order and free list membership use
// separate link pairs so walking one never disturbs the other.
type blockHeader struct {
	size     uint32 // payload bytes, excluding the header
	state    blockState
	heapPrev uint32
	heapNext uint32
	freePrev uint32
	freeNext uint32
	magic    uint32
	_        uint32
}

const headerSize = uint32(unsafe.Sizeof(blockHeader{}))

const (
	maxMemLimit = uint64(math.MaxUint32 &^ (WordSize - 1))
	maxPayload  = maxMemLimit - uint64(headerSize)
)

func newBlockHeader(size uint32, state blockState) blockHeader {
	return blockHeader{
		size:     size,
		state:    state,
		heapPrev: nullAddr,
		heapNext: nullAddr,
		freePrev: nullAddr,
		freeNext: nullAddr,
		magic:    blockMagic,
	}
}

func payloadOf(addr uint32) Ptr {
	return Ptr(addr + headerSize)
}

func blockOf(ptr Ptr) uint32 {
	return uint32(ptr) - headerSize
}

func headerAt(brk Break, addr uint32) *blockHeader {
	return (*blockHeader)(toRealAddr(brk, addr))
}
