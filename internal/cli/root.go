// Package cli wires the splitexec command surface: running a command in
// a fork-isolated child and working with isolation profiles.
package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Paintersrp/splitexec"
)

type rootOptions struct {
	debug   bool
	noColor bool
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.debug {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewRootCmd builds the CLI entrypoint command.
func NewRootCmd() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "splitexec",
		Short: "Run a command in a fork-isolated child process",
		Long: "splitexec forks a child process, confines it according to an\n" +
			"isolation profile and runs a command inside the confinement. A\n" +
			"failure in the child is reported back with the child's own\n" +
			"diagnostic trace.",
	}

	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging of the region lifecycle")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored trace output")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newProfileCmd())

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root, opts
}

// Execute runs the CLI entrypoint. It must be called after
// splitexec.Main so it only ever runs in the parent.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, opts := newRootCommand()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		var child *splitexec.ChildError
		if errors.As(err, &child) {
			renderChildError(os.Stderr, child, shouldColorize(os.Stderr, opts.noColor))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps a CLI error onto the process exit code, mirroring the
// confined command's status when the child reported one.
func exitCode(err error) int {
	var child *splitexec.ChildError
	if errors.As(err, &child) && child.Status != 0 {
		return child.Status
	}
	return 1
}
