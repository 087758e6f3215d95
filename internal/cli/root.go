// Package cli wires the saltproc commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kingrea/saltproc/internal/errs"
)

const defaultConfigFile = "saltproc.yaml"

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "saltproc: %v\n", err)
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	if errs.IsFatal(err) {
		return ExitConfig
	}
	return ExitFailure
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "saltproc",
		Short:         "Molten salt reprocessing flowsheets",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(initCmd(), validateCmd(), pathsCmd(), runCmd(), browseCmd())
	return cmd
}
