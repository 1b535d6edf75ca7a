// Package brkalloc exposes a process-wide heap with the classic
// malloc / calloc / realloc / free surface. None of it is safe for concurrent use.
package brkalloc

import (
	"errors"
	"os"

	"github.com/QuangTung97/brkalloc/allocator"
	"github.com/rs/zerolog"
)

const (
	// DefaultReserve is the address space reserved by the lazily built heap.
	DefaultReserve = 1 << 30

	// DefaultArenaLimit is used when address space cannot be reserved with mmap.
	DefaultArenaLimit = 16 << 20
)

// ErrAlreadyInitialized is returned by Init when the process-wide heap exists.
var ErrAlreadyInitialized = errors.New("brkalloc: already initialized")

var std *allocator.Heap

// Init builds the process-wide heap from conf.
func Init(conf allocator.Config) error {
	if std != nil {
		return ErrAlreadyInitialized
	}
	std = allocator.New(conf)
	return nil
}

// Teardown closes the process-wide heap. Every pointer it handed out becomes invalid.
func Teardown() error {
	if std == nil {
		return nil
	}
	err := std.Close()
	std = nil
	return err
}

// Default returns the process-wide heap, building it on first use.
func Default() *allocator.Heap {
	if std == nil {
		std = newDefaultHeap()
	}
	return std
}

func newDefaultHeap() *allocator.Heap {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "brkalloc").Logger().
		Level(zerolog.WarnLevel)

	brk, err := allocator.NewMmapBreak(DefaultReserve)
	if err != nil {
		logger.Warn().Err(err).Int("limit", DefaultArenaLimit).Msg("falling back to arena")
		return allocator.New(allocator.Config{
			MemLimit: DefaultArenaLimit,
			Logger:   &logger,
		})
	}
	return allocator.New(allocator.Config{
		Break:  brk,
		Logger: &logger,
	})
}

// Malloc returns NullPtr when size <= 0.
func Malloc(size int) allocator.Ptr {
	p, _ := Default().Allocate(size)
	return p
}

// Calloc returns a zeroed payload, or NullPtr for non-positive or overflowing arguments.
func Calloc(count int, size int) allocator.Ptr {
	p, _ := Default().AllocateZeroed(count, size)
	return p
}

// Realloc ...
func Realloc(ptr allocator.Ptr, size int) allocator.Ptr {
	p, _ := Default().Reallocate(ptr, size)
	return p
}

// Free is a no-op before the heap has been built.
func Free(ptr allocator.Ptr) {
	if std == nil {
		return
	}
	std.Free(ptr)
}

// Bytes returns the payload at ptr.
func Bytes(ptr allocator.Ptr) []byte {
	if std == nil {
		return nil
	}
	return std.Bytes(ptr)
}
