package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dennisklein/cmockgen/internal/cmock"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config <destination-dir>",
		Short: "Print the CMock options file",
		Long:  `Print the YAML options file cmockgen hands to CMock when writing mocks to the destination directory.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runConfig,
	}
}

func runConfig(cmd *cobra.Command, args []string) error {
	data, err := cmock.NewConfig(args[0]).YAML()
	if err != nil {
		return err
	}

	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}
