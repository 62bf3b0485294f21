package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dennisklein/cmockgen/internal/cmock"
)

var errMissingArguments = errors.New("header file to mock & destination directory must be specified")

func newRootCmd() *cobra.Command {
	return newRootCmdWithOptions(newGenerateOptions())
}

func newRootCmdWithOptions(opts *generateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmockgen <header-file> <destination-dir>",
		Short: "Generate CMock mocks for a C header",
		Long: `cmockgen generates CMock mocks for a C header file and writes them to the destination directory.

Mocks are generated with the ignore and return_thru_ptr plugins and the "mock_" prefix.
CMock itself is downloaded on first use unless --cmock-dir points to a local checkout.`,
		Args: requireHeaderAndDest,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			return opts.run(cmd, args)
		},
	}

	opts.bindFlags(cmd.Flags())

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCMockCmd())
	cmd.AddCommand(newUnityCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// requireHeaderAndDest accepts two or more positional arguments; extras are ignored.
func requireHeaderAndDest(_ *cobra.Command, args []string) error {
	if len(args) < 2 {
		return errMissingArguments
	}

	return nil
}

// Execute runs the root command and returns the process exit status.
func Execute(ctx context.Context, args []string) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)

	return cmock.ExitCode(cmd.ExecuteContext(ctx))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:])

	stop()
	os.Exit(code)
}
