//go:build linux || darwin || freebsd

package allocator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestMmapBreak_Extend(t *testing.T) {
	pageSize := uint32(unix.Getpagesize())

	m, err := NewMmapBreak(int(4 * pageSize))
	require.Nil(t, err)
	defer func() { _ = m.Close() }()

	assert.Equal(t, 4*pageSize, m.Reserved())
	assert.Equal(t, uint32(0), m.Committed())
	assert.Equal(t, uintptr(0), uintptr(m.Base())%uintptr(pageSize))

	old, err := m.Extend(40)
	assert.Nil(t, err)
	assert.Equal(t, uint32(0), old)
	assert.Equal(t, uint32(40), m.Size())
	assert.Equal(t, pageSize, m.Committed())

	old, err = m.Extend(pageSize)
	assert.Nil(t, err)
	assert.Equal(t, uint32(40), old)
	assert.Equal(t, 2*pageSize, m.Committed())

	// committed pages are writable and start zeroed
	p := (*uint64)(toRealAddr(m, pageSize))
	assert.Equal(t, uint64(0), *p)
	*p = 42
	assert.Equal(t, uint64(42), *p)

	_, err = m.Extend(3 * pageSize)
	assert.True(t, errors.Is(err, ErrHeapExhausted))
	assert.Equal(t, 40+pageSize, m.Size())
}

func TestMmapBreak_RoundsLimitToPages(t *testing.T) {
	pageSize := uint32(unix.Getpagesize())

	m, err := NewMmapBreak(int(pageSize) + 1)
	require.Nil(t, err)
	defer func() { _ = m.Close() }()

	assert.Equal(t, 2*pageSize, m.Reserved())
}

func TestMmapBreak_Close(t *testing.T) {
	m, err := NewMmapBreak(1 << 16)
	require.Nil(t, err)

	_, err = m.Extend(128)
	assert.Nil(t, err)

	assert.Nil(t, m.Close())
	assert.Nil(t, m.Close())
	assert.Equal(t, uint32(0), m.Size())
}

func TestHeap_OnMmapBreak(t *testing.T) {
	m, err := NewMmapBreak(1 << 20)
	require.Nil(t, err)

	h := New(Config{Break: m})
	defer func() { _ = h.Close() }()

	p1, ok := h.Allocate(10)
	assert.True(t, ok)
	p2, ok := h.Allocate(5000)
	assert.True(t, ok)

	for i := range h.Bytes(p2) {
		h.Bytes(p2)[i] = byte(i)
	}

	h.Free(p1)
	p3, ok := h.Allocate(8)
	assert.True(t, ok)
	assert.Equal(t, p1, p3)

	p4, ok := h.Reallocate(p2, 9000)
	assert.True(t, ok)
	assert.NotEqual(t, p2, p4)
	for i := 0; i < 5000; i++ {
		assert.Equal(t, byte(i), h.Bytes(p4)[i])
	}

	assert.Nil(t, h.Check())
	assert.Equal(t, uint32(h.Stats().HeapSize), m.Size())
}
