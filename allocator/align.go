package allocator

// WordSize is the alignment of every block header and payload.
const WordSize = 8

// Align rounds n up to the next multiple of WordSize.
func Align(n uint64) uint64 {
	return (n + WordSize - 1) &^ (WordSize - 1)
}
