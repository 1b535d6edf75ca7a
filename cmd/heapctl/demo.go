package main

import (
	"strings"

	"github.com/spf13/cobra"
)

const demoScript = `
alloc p1 10
alloc p2 20
free p1
alloc p3 8       # reuses p1
calloc z 4 4
fill z 0xab
free z
alloc q 16       # same block, contents not cleared
realloc p2 100   # moves, old block is freed
free p3          # merges with the block freed by realloc
`

func init() {
	rootCmd.AddCommand(newDemoCmd())
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a short built-in script",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseScript(strings.NewReader(demoScript))
			if err != nil {
				return err
			}
			return replay(steps)
		},
	}
}
