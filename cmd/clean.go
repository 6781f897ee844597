package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanq16/radiograb/internal/output"
	"github.com/tanq16/radiograb/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [path]",
		Short: "Clean up leftover partial recordings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.Stream.OutputDir
			if len(args) == 1 {
				dir = args[0]
			}
			removed, err := utils.Clean(dir)
			if err != nil {
				return fmt.Errorf("clean %s: %w", dir, err)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d temporary file(s) from %s", removed, dir))
			return nil
		},
	}
}
