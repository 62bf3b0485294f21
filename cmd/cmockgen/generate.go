package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dennisklein/cmockgen/internal/cmock"
	"github.com/dennisklein/cmockgen/internal/tool"
)

const (
	envCMockDir     = "CMOCKGEN_CMOCK_DIR"
	envCMockVersion = "CMOCKGEN_CMOCK_VERSION"
	envRuby         = "CMOCKGEN_RUBY"
	defaultRuby     = "ruby"
)

type generatorFactory func(ctx context.Context, cfg cmock.Config, stdout, stderr io.Writer) (cmock.Generator, error)

//nolint:govet // fieldalignment: readability preferred over optimization
type generateOptions struct {
	cmockDir     string
	cmockVersion string
	ruby         string
	newGenerator generatorFactory
}

func newGenerateOptions() *generateOptions {
	opts := &generateOptions{}
	opts.newGenerator = opts.rubyGenerator

	return opts
}

// bindFlags registers the generator flags, taking defaults from the environment.
func (o *generateOptions) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.cmockDir, "cmock-dir", envOr(envCMockDir, ""),
		"use a local CMock checkout instead of a cached release (env "+envCMockDir+")")
	fs.StringVar(&o.cmockVersion, "cmock-version", envOr(envCMockVersion, ""),
		"CMock release tag or semver constraint, latest when empty (env "+envCMockVersion+")")
	fs.StringVar(&o.ruby, "ruby", envOr(envRuby, defaultRuby),
		"Ruby interpreter used to run CMock (env "+envRuby+")")
}

func (o *generateOptions) run(cmd *cobra.Command, args []string) error {
	header, dest := args[0], args[1]

	cfg := cmock.NewConfig(dest)

	gen, err := o.newGenerator(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	return gen.Generate(cmd.Context(), header)
}

func (o *generateOptions) rubyGenerator(ctx context.Context, cfg cmock.Config, stdout, stderr io.Writer) (cmock.Generator, error) {
	dir, err := o.cmockRoot(ctx, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to locate cmock: %w", err)
	}

	script := filepath.Join(dir, filepath.FromSlash(tool.CMockEntrypoint))
	runner := cmock.ExecRunner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}

	return cmock.NewRubyGenerator(cfg, o.ruby, script, runner), nil
}

// cmockRoot returns the local checkout if one was given, otherwise the cached release.
func (o *generateOptions) cmockRoot(ctx context.Context, progress io.Writer) (string, error) {
	if o.cmockDir != "" {
		return o.cmockDir, nil
	}

	return tool.NewCMock(progress, o.cmockVersion).Install(ctx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
