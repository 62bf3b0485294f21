package main

import (
	"errors"
	"runtime/debug"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE:  version,
	}
}

func version(cmd *cobra.Command, _ []string) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("could not read embedded build info ('go build -buildvcs=true')")
	}

	cmd.Println(info.Main.Version)

	return nil
}
