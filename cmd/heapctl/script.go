package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/QuangTung97/brkalloc/allocator"
)

type opKind int

const (
	opAlloc opKind = iota
	opCalloc
	opRealloc
	opFree
	opFill
	opDump
)

type opSpec struct {
	kind  opKind
	nargs int // numeric arguments after the name
	named bool
}

var opSpecs = map[string]opSpec{
	"alloc":   {kind: opAlloc, nargs: 1, named: true},
	"calloc":  {kind: opCalloc, nargs: 2, named: true},
	"realloc": {kind: opRealloc, nargs: 1, named: true},
	"free":    {kind: opFree, nargs: 0, named: true},
	"fill":    {kind: opFill, nargs: 1, named: true},
	"dump":    {kind: opDump, nargs: 0, named: false},
}

type step struct {
	line int
	text string
	kind opKind
	name string
	args []int
}

// parseScript reads one operation per line. Blank lines and # comments are skipped.
func parseScript(r io.Reader) ([]step, error) {
	var steps []step

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		spec, ok := opSpecs[fields[0]]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown operation %q", lineNo, fields[0])
		}

		want := 1 + spec.nargs
		if spec.named {
			want++
		}
		if len(fields) != want {
			return nil, fmt.Errorf("line %d: %s takes %d argument(s), got %d", lineNo, fields[0], want-1, len(fields)-1)
		}

		st := step{
			line: lineNo,
			text: strings.Join(fields, " "),
			kind: spec.kind,
		}
		rest := fields[1:]
		if spec.named {
			st.name = rest[0]
			rest = rest[1:]
		}
		for _, f := range rest {
			v, err := strconv.ParseInt(f, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q: %w", lineNo, f, err)
			}
			st.args = append(st.args, int(v))
		}
		if st.kind == opFill && (st.args[0] < 0 || st.args[0] > 0xff) {
			return nil, fmt.Errorf("line %d: fill byte %d out of range", lineNo, st.args[0])
		}

		steps = append(steps, st)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return steps, nil
}

type session struct {
	heap  *allocator.Heap
	out   io.Writer
	ptrs  map[string]allocator.Ptr
	check bool
	json  bool
}

func newSession(heap *allocator.Heap, out io.Writer) *session {
	return &session{
		heap: heap,
		out:  out,
		ptrs: map[string]allocator.Ptr{},
	}
}

func (s *session) lookup(st step) (allocator.Ptr, error) {
	p, ok := s.ptrs[st.name]
	if !ok {
		return allocator.NullPtr, fmt.Errorf("line %d: unknown pointer %q", st.line, st.name)
	}
	return p, nil
}

func (s *session) store(name string, p allocator.Ptr, ok bool) {
	if !ok {
		delete(s.ptrs, name)
		return
	}
	s.ptrs[name] = p
}

// run executes steps in order. Heap exhaustion ends the run with an error.
func (s *session) run(steps []step) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		perr, ok := r.(error)
		if !ok || !errors.Is(perr, allocator.ErrHeapExhausted) {
			panic(r)
		}
		err = perr
	}()

	for _, st := range steps {
		if err := s.exec(st); err != nil {
			return err
		}
		if s.check {
			if err := s.heap.Check(); err != nil {
				return fmt.Errorf("line %d (%s): %w", st.line, st.text, err)
			}
		}
	}
	return nil
}

func (s *session) exec(st step) error {
	switch st.kind {
	case opAlloc:
		p, ok := s.heap.Allocate(st.args[0])
		s.store(st.name, p, ok)

	case opCalloc:
		p, ok := s.heap.AllocateZeroed(st.args[0], st.args[1])
		s.store(st.name, p, ok)

	case opRealloc:
		p := s.ptrs[st.name]
		q, ok := s.heap.Reallocate(p, st.args[0])
		s.store(st.name, q, ok)

	case opFree:
		p, err := s.lookup(st)
		if err != nil {
			return err
		}
		s.heap.Free(p)
		delete(s.ptrs, st.name)

	case opFill:
		p, err := s.lookup(st)
		if err != nil {
			return err
		}
		b := s.heap.Bytes(p)
		for i := range b {
			b[i] = byte(st.args[0])
		}

	case opDump:
		return s.dump()
	}
	return nil
}

type blockView struct {
	Ptr  uint32 `json:"ptr"`
	Size uint32 `json:"size"`
	Free bool   `json:"free"`
	Name string `json:"name,omitempty"`
}

type snapshot struct {
	Stats    allocator.Stats `json:"stats"`
	Blocks   []blockView     `json:"blocks"`
	FreeList []uint32        `json:"free_list"`
}

func (s *session) snapshot() snapshot {
	names := map[allocator.Ptr]string{}
	keys := make([]string, 0, len(s.ptrs))
	for name := range s.ptrs {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	for _, name := range keys {
		if _, ok := names[s.ptrs[name]]; !ok {
			names[s.ptrs[name]] = name
		}
	}

	snap := snapshot{
		Stats:    s.heap.Stats(),
		Blocks:   []blockView{},
		FreeList: []uint32{},
	}
	for _, b := range s.heap.Blocks() {
		v := blockView{Ptr: uint32(b.Ptr), Size: b.Size, Free: b.Free}
		if !b.Free {
			v.Name = names[b.Ptr]
		}
		snap.Blocks = append(snap.Blocks, v)
	}
	for _, p := range s.heap.FreeList() {
		snap.FreeList = append(snap.FreeList, uint32(p))
	}
	return snap
}

func (s *session) dump() error {
	snap := s.snapshot()
	if s.json {
		return printJSON(s.out, snap)
	}

	fmt.Fprintf(s.out, "%-10s %-10s %-9s %s\n", "PTR", "SIZE", "STATE", "NAME")
	for _, b := range snap.Blocks {
		state := "allocated"
		if b.Free {
			state = "free"
		}
		fmt.Fprintf(s.out, "%-10d %-10d %-9s %s\n", b.Ptr, b.Size, state, b.Name)
	}

	list := make([]string, 0, len(snap.FreeList))
	for _, p := range snap.FreeList {
		list = append(list, strconv.FormatUint(uint64(p), 10))
	}
	fmt.Fprintf(s.out, "free list: [%s]\n", strings.Join(list, " "))
	fmt.Fprintf(s.out, "heap %d bytes, %d blocks (%d free), %d allocated, %d free, %d grows\n",
		snap.Stats.HeapSize, snap.Stats.Blocks, snap.Stats.FreeBlocks,
		snap.Stats.AllocatedBytes, snap.Stats.FreeBytes, snap.Stats.Grows)
	return nil
}
