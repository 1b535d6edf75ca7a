package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/QuangTung97/brkalloc/allocator"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose  bool
	jsonOut  bool
	checkAll bool
	memLimit int
	backing  string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Drive and inspect a brk-style heap",
	Long: `heapctl replays allocation scripts against a heap built on a single
growing break and prints the resulting block chain, free list and statistics.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log heap growth, splits and merges")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&checkAll, "check", false, "Verify heap invariants after every step")
	rootCmd.PersistentFlags().IntVar(&memLimit, "limit", 1<<20, "Heap size limit in bytes")
	rootCmd.PersistentFlags().StringVar(&backing, "backing", "arena", "Break source: arena or mmap")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func newBreak(kind string, limit int) (allocator.Break, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	switch kind {
	case "arena":
		return allocator.NewArena(limit), nil
	case "mmap":
		return allocator.NewMmapBreak(limit)
	default:
		return nil, fmt.Errorf("unknown backing %q (want arena or mmap)", kind)
	}
}

func newHeap(logger *zerolog.Logger) (*allocator.Heap, error) {
	brk, err := newBreak(backing, memLimit)
	if err != nil {
		return nil, err
	}
	return allocator.New(allocator.Config{
		Break:  brk,
		Logger: logger,
	}), nil
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
