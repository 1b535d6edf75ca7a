package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/QuangTung97/brkalloc/allocator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	steps, err := parseScript(strings.NewReader(`
# setup
alloc a 10
calloc b 4 0x4   # hex works
realloc a 100

fill b 255
free a
dump
`))
	require.Nil(t, err)

	assert.Equal(t, []step{
		{line: 3, text: "alloc a 10", kind: opAlloc, name: "a", args: []int{10}},
		{line: 4, text: "calloc b 4 0x4", kind: opCalloc, name: "b", args: []int{4, 4}},
		{line: 5, text: "realloc a 100", kind: opRealloc, name: "a", args: []int{100}},
		{line: 7, text: "fill b 255", kind: opFill, name: "b", args: []int{255}},
		{line: 8, text: "free a", kind: opFree, name: "a"},
		{line: 9, text: "dump", kind: opDump},
	}, steps)
}

func TestParseScript_Errors(t *testing.T) {
	table := []struct {
		name    string
		script  string
		message string
	}{
		{name: "unknown-op", script: "malloc a 1", message: `line 1: unknown operation "malloc"`},
		{name: "missing-arg", script: "alloc a", message: "line 1: alloc takes 2 argument(s), got 1"},
		{name: "extra-arg", script: "\ndump now", message: "line 2: dump takes 0 argument(s), got 1"},
		{name: "bad-number", script: "alloc a ten", message: `line 1: bad number "ten"`},
		{name: "fill-range", script: "fill a 256", message: "line 1: fill byte 256 out of range"},
	}

	for _, e := range table {
		t.Run(e.name, func(t *testing.T) {
			_, err := parseScript(strings.NewReader(e.script))
			require.NotNil(t, err)
			assert.Contains(t, err.Error(), e.message)
		})
	}
}

func runTestScript(t *testing.T, limit int, script string) (*session, error) {
	steps, err := parseScript(strings.NewReader(script))
	require.Nil(t, err)

	heap := allocator.New(allocator.Config{MemLimit: limit})
	s := newSession(heap, &bytes.Buffer{})
	s.check = true
	return s, s.run(steps)
}

func TestSession_DemoScript(t *testing.T) {
	s, err := runTestScript(t, 1<<12, demoScript)
	require.Nil(t, err)

	snap := s.snapshot()
	assert.Equal(t, []blockView{
		{Ptr: 32, Size: 72, Free: true},
		{Ptr: 136, Size: 32, Free: false, Name: "q"},
		{Ptr: 200, Size: 104, Free: false, Name: "p2"},
	}, snap.Blocks)
	assert.Equal(t, []uint32{32}, snap.FreeList)
	assert.Equal(t, byte(0xab), s.heap.Bytes(s.ptrs["q"])[0])
}

func TestSession_UnknownPointer(t *testing.T) {
	_, err := runTestScript(t, 1<<12, "alloc a 8\nfree b\n")
	require.NotNil(t, err)
	assert.Equal(t, `line 2: unknown pointer "b"`, err.Error())
}

func TestSession_FailedAllocationForgetsName(t *testing.T) {
	s, err := runTestScript(t, 1<<12, "alloc a 8\nrealloc a 0\ncalloc c 0 4\n")
	require.Nil(t, err)
	assert.Equal(t, map[string]allocator.Ptr{}, s.ptrs)
	assert.Equal(t, []allocator.Ptr{32}, s.heap.FreeList())
}

func TestSession_Exhausted(t *testing.T) {
	_, err := runTestScript(t, 128, "alloc a 64\nalloc b 64\n")
	require.NotNil(t, err)
	assert.True(t, errors.Is(err, allocator.ErrHeapExhausted))
}

func TestSession_Dump(t *testing.T) {
	steps, err := parseScript(strings.NewReader("alloc a 8\nalloc b 16\nfree a\ndump\n"))
	require.Nil(t, err)

	var out bytes.Buffer
	s := newSession(allocator.New(allocator.Config{MemLimit: 1 << 12}), &out)
	require.Nil(t, s.run(steps))

	text := out.String()
	assert.Contains(t, text, "32         8          free")
	assert.Contains(t, text, "72         16         allocated b")
	assert.Contains(t, text, "free list: [32]")
	assert.Contains(t, text, "heap 88 bytes, 2 blocks (1 free), 16 allocated, 8 free, 2 grows")
}

func TestSession_DumpJSON(t *testing.T) {
	steps, err := parseScript(strings.NewReader("alloc a 8\ndump\n"))
	require.Nil(t, err)

	var out bytes.Buffer
	s := newSession(allocator.New(allocator.Config{MemLimit: 1 << 12}), &out)
	s.json = true
	require.Nil(t, s.run(steps))

	var snap snapshot
	require.Nil(t, json.Unmarshal(out.Bytes(), &snap))
	assert.Equal(t, []blockView{{Ptr: 32, Size: 8, Name: "a"}}, snap.Blocks)
	assert.Equal(t, []uint32{}, snap.FreeList)
	assert.Equal(t, uint32(40), snap.Stats.HeapSize)
}

func TestNewBreak(t *testing.T) {
	brk, err := newBreak("arena", 1<<12)
	require.Nil(t, err)
	assert.IsType(t, &allocator.Arena{}, brk)

	_, err = newBreak("sbrk", 1<<12)
	assert.Equal(t, `unknown backing "sbrk" (want arena or mmap)`, err.Error())

	_, err = newBreak("arena", 0)
	assert.Equal(t, "limit must be positive, got 0", err.Error())
}
