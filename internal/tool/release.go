package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/google/go-github/v58/github"
)

const releasesPerPage = 100

// newGitHubClient returns an API client, authenticated when GITHUB_TOKEN is set.
func newGitHubClient() *github.Client {
	client := github.NewClient(getRetryableClient().StandardClient())

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		client = client.WithAuthToken(token)
	}

	return client
}

// releaseVersionFunc resolves pin against the releases of owner/repo.
// An empty pin means the latest release, an exact version is used as given,
// anything else is treated as a semver constraint.
func releaseVersionFunc(newClient func() *github.Client, owner, repo, pin string) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		switch {
		case pin == "":
			return latestRelease(ctx, newClient(), owner, repo)
		case isExactVersion(pin):
			return pin, nil
		default:
			return matchingRelease(ctx, newClient(), owner, repo, pin)
		}
	}
}

// pinAccepts reports which cached versions may stand in for pin when the
// releases API is unreachable. Exact pins never need a stand-in.
func pinAccepts(pin string) func(string) bool {
	switch {
	case pin == "":
		return func(string) bool { return true }
	case isExactVersion(pin):
		return func(v string) bool { return v == pin }
	}

	c, err := semver.NewConstraint(pin)
	if err != nil {
		return func(string) bool { return false }
	}

	return func(v string) bool {
		sv, err := semver.NewVersion(v)

		return err == nil && c.Check(sv)
	}
}

func isExactVersion(v string) bool {
	_, err := semver.StrictNewVersion(strings.TrimPrefix(v, "v"))

	return err == nil
}

func latestRelease(ctx context.Context, client *github.Client, owner, repo string) (string, error) {
	release, _, err := client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to get latest %s/%s release: %w", owner, repo, err)
	}

	tag := release.GetTagName()
	if tag == "" {
		return "", fmt.Errorf("latest %s/%s release has no tag", owner, repo)
	}

	return tag, nil
}

// matchingRelease returns the highest non-prerelease tag satisfying constraint.
func matchingRelease(ctx context.Context, client *github.Client, owner, repo, constraint string) (string, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return "", fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}

	var (
		best    *semver.Version
		bestTag string
	)

	opts := &github.ListOptions{PerPage: releasesPerPage}

	for {
		releases, resp, err := client.Repositories.ListReleases(ctx, owner, repo, opts)
		if err != nil {
			return "", fmt.Errorf("failed to list %s/%s releases: %w", owner, repo, err)
		}

		for _, release := range releases {
			if release.GetDraft() || release.GetPrerelease() {
				continue
			}

			v, err := semver.NewVersion(release.GetTagName())
			if err != nil {
				continue
			}

			if c.Check(v) && (best == nil || v.GreaterThan(best)) {
				best, bestTag = v, release.GetTagName()
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}

		opts.Page = resp.NextPage
	}

	if best == nil {
		return "", fmt.Errorf("no %s/%s release matches %q", owner, repo, constraint)
	}

	return bestTag, nil
}

// githubArchiveURL returns the source tarball location for a tag.
func githubArchiveURL(owner, repo string) func(version string) string {
	return func(version string) string {
		return fmt.Sprintf("https://github.com/%s/%s/archive/refs/tags/%s.tar.gz", owner, repo, version)
	}
}
