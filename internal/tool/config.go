package tool

import (
	"io"

	"github.com/google/go-github/v58/github"
)

// Config defines the configuration for creating a Tool.
//
//nolint:govet // fieldalignment: readability preferred over optimization
type Config struct {
	Name       string
	Owner      string
	Repo       string
	Entrypoint string
	// Version is an exact tag or a semver constraint; empty selects the latest release.
	Version string
}

// NewToolFromConfig creates a Tool backed by GitHub release tarballs.
func NewToolFromConfig(cfg Config, progress io.Writer) *Tool {
	return newToolWithClient(cfg, progress, newGitHubClient)
}

func newToolWithClient(cfg Config, progress io.Writer, newClient func() *github.Client) *Tool {
	return &Tool{
		Name:           cfg.Name,
		Entrypoint:     cfg.Entrypoint,
		ProgressWriter: progress,
		VersionFunc:    releaseVersionFunc(newClient, cfg.Owner, cfg.Repo, cfg.Version),
		DownloadURL:    githubArchiveURL(cfg.Owner, cfg.Repo),
		Accepts:        pinAccepts(cfg.Version),
	}
}

// cmockConfig returns the configuration for CMock.
func cmockConfig(version string) Config {
	return Config{
		Name:       CMockName,
		Owner:      "ThrowTheSwitch",
		Repo:       "CMock",
		Entrypoint: CMockEntrypoint,
		Version:    version,
	}
}

// unityConfig returns the configuration for Unity, whose headers the generated mocks include.
func unityConfig(version string) Config {
	return Config{
		Name:       UnityName,
		Owner:      "ThrowTheSwitch",
		Repo:       "Unity",
		Entrypoint: "auto/generate_test_runner.rb",
		Version:    version,
	}
}
