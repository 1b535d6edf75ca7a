package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Replay an allocation script",
		Long: `The run command executes an allocation script line by line and dumps the
heap at the end (and wherever the script says "dump").

Script lines:
  alloc NAME SIZE
  calloc NAME COUNT SIZE
  realloc NAME SIZE
  free NAME
  fill NAME BYTE
  dump

Example:
  heapctl run trace.txt
  heapctl run trace.txt --backing mmap --check --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(args[0])
		},
	}
	return cmd
}

func runScript(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()

	steps, err := parseScript(f)
	if err != nil {
		return err
	}
	return replay(steps)
}

func replay(steps []step) error {
	logger := newLogger()

	heap, err := newHeap(&logger)
	if err != nil {
		return err
	}
	defer func() { _ = heap.Close() }()

	logger.Debug().Str("backing", backing).Int("limit", memLimit).Int("steps", len(steps)).Msg("replaying script")

	s := newSession(heap, os.Stdout)
	s.check = checkAll
	s.json = jsonOut

	if err := s.run(steps); err != nil {
		return err
	}
	return s.dump()
}
