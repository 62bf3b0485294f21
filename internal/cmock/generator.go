package cmock

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/goaux/stacktrace/v2"
	"github.com/spf13/afero"
)

var (
	// ErrRubyNotFound is returned when the Ruby interpreter cannot be located.
	ErrRubyNotFound = errors.New("ruby interpreter not found")
	// ErrScriptNotFound is returned when the CMock entry script does not exist.
	ErrScriptNotFound = errors.New("cmock script not found")
)

// Generator produces mocks for a single C header.
type Generator interface {
	Generate(ctx context.Context, header string) error
}

// RubyGenerator runs CMock's command-line script with a generated options file.
//
//nolint:govet // fieldalignment: readability preferred over optimization
type RubyGenerator struct {
	Config   Config
	Ruby     string // interpreter name or path
	Script   string // path to lib/cmock.rb
	Runner   Runner
	Fs       afero.Fs                      // defaults to OsFs
	LookPath func(string) (string, error) // defaults to exec.LookPath
}

// NewRubyGenerator creates a generator for cfg using the given interpreter and CMock script.
func NewRubyGenerator(cfg Config, ruby, script string, runner Runner) *RubyGenerator {
	return &RubyGenerator{
		Config: cfg,
		Ruby:   ruby,
		Script: script,
		Runner: runner,
	}
}

// Generate writes the options file, runs CMock once for header and removes the file again.
func (g *RubyGenerator) Generate(ctx context.Context, header string) (err error) {
	if header == "" {
		return errors.New("header path is empty")
	}

	if err := g.Config.Validate(); err != nil {
		return fmt.Errorf("invalid cmock configuration: %w", err)
	}

	rubyPath, err := stacktrace.Trace2(g.lookPath()(g.Ruby))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRubyNotFound, err)
	}

	fs := g.getFs()

	if info, statErr := fs.Stat(g.Script); statErr != nil || info.IsDir() {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, g.Script)
	}

	optionsPath, err := g.writeOptions(fs)
	if err != nil {
		return err
	}

	defer func() {
		if removeErr := fs.Remove(optionsPath); removeErr != nil && err == nil {
			err = fmt.Errorf("failed to remove options file: %w", removeErr)
		}
	}()

	return g.Runner.Run(ctx, rubyPath, g.Script, "-o"+optionsPath, header)
}

func (g *RubyGenerator) writeOptions(fs afero.Fs) (string, error) {
	data, err := g.Config.YAML()
	if err != nil {
		return "", err
	}

	f, err := afero.TempFile(fs, "", "cmockgen-*.yml")
	if err != nil {
		return "", fmt.Errorf("failed to create options file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()           //nolint:errcheck // close on error path
		_ = fs.Remove(f.Name()) //nolint:errcheck // best effort cleanup

		return "", fmt.Errorf("failed to write options file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = fs.Remove(f.Name()) //nolint:errcheck // best effort cleanup

		return "", fmt.Errorf("failed to write options file: %w", err)
	}

	return f.Name(), nil
}

func (g *RubyGenerator) getFs() afero.Fs {
	if g.Fs == nil {
		return afero.NewOsFs()
	}

	return g.Fs
}

func (g *RubyGenerator) lookPath() func(string) (string, error) {
	if g.LookPath == nil {
		return exec.LookPath
	}

	return g.LookPath
}
