package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dennisklein/cmockgen/internal/tool"
	"github.com/dennisklein/cmockgen/internal/util"
)

const (
	toolNameWidth = 10
	versionWidth  = 10
	sizeWidth     = 10
)

var (
	toolNameStyle   = lipgloss.NewStyle().Bold(true).Width(toolNameWidth).Align(lipgloss.Left)
	versionStyle    = lipgloss.NewStyle().Width(versionWidth).Align(lipgloss.Left)
	latestStyle     = versionStyle.Foreground(lipgloss.Color("10"))
	oldVersionStyle = versionStyle.Foreground(lipgloss.Color("8"))
	notCachedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	sizeStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Width(sizeWidth).Align(lipgloss.Right)
	totalSizeStyle  = sizeStyle.Bold(true)
	successStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Manage cached CMock and Unity releases",
		Long:  `Manage the CMock and Unity source releases cached by cmockgen (clean, info, update).`,
	}

	cmd.AddCommand(newToolsCleanCmd())
	cmd.AddCommand(newToolsInfoCmd())
	cmd.AddCommand(newToolsUpdateCmd())

	return cmd
}

func newToolsCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [tool...]",
		Short: "Remove cached releases",
		Long:  `Remove cached releases. If no tool names are specified, cleans all tools.`,
		RunE:  runToolsClean,
	}

	cmd.Flags().Bool("old", false, "Only remove obsolete versions (keep most recent)")

	return cmd
}

func newToolsInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [tool...]",
		Short: "Show cached release information",
		Long:  `Show version, size and location of cached releases. If no tool names are specified, shows all tools.`,
		RunE:  runToolsInfo,
	}
}

func newToolsUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update [tool...]",
		Short: "Download the latest releases",
		Long:  `Check for and download the latest release of each tool. If no tool names are specified, updates all tools.`,
		RunE:  runToolsUpdate,
	}
}

func runToolsClean(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	registry := tool.NewRegistry(out)

	cleanOld, err := cmd.Flags().GetBool("old")
	if err != nil {
		return fmt.Errorf("failed to get --old flag: %w", err)
	}

	var totalReclaimed int64

	for _, t := range resolveTools(registry, args) {
		reclaimed, err := cleanTool(t, cleanOld)
		if err != nil {
			return err
		}

		totalReclaimed += reclaimed
	}

	if totalReclaimed == 0 {
		return nil
	}

	if _, err := fmt.Fprintf(out, "Reclaimed %s\n", successStyle.Bold(true).Render(util.FormatBytes(totalReclaimed))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

// cleanTool removes cached versions of t and returns the number of bytes freed.
// With keepNewest set, the most recent version survives.
func cleanTool(t *tool.Tool, keepNewest bool) (int64, error) {
	versions, err := t.CachedVersions()
	if err != nil {
		return 0, fmt.Errorf("failed to get cached versions for %s: %w", t.Name, err)
	}

	var reclaimed int64

	if keepNewest {
		// Versions are sorted newest first
		for _, v := range versions[min(1, len(versions)):] {
			if err := t.CleanVersion(v.Version); err != nil {
				return reclaimed, fmt.Errorf("failed to clean %s version %s: %w", t.Name, v.Version, err)
			}

			reclaimed += v.Size
		}

		return reclaimed, nil
	}

	for _, v := range versions {
		reclaimed += v.Size
	}

	if err := t.CleanAll(); err != nil {
		return 0, fmt.Errorf("failed to clean %s: %w", t.Name, err)
	}

	return reclaimed, nil
}

func runToolsInfo(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	registry := tool.NewRegistry(nil)
	tools := resolveTools(registry, args)

	home, _ := os.UserHomeDir() //nolint:errcheck // paths are shown unshortened without a home

	var totalSize int64

	for _, t := range tools {
		size, err := printToolInfo(out, t, home)
		if err != nil {
			return err
		}

		totalSize += size
	}

	if len(tools) > 1 && totalSize > 0 {
		totalName := toolNameStyle.Render("total")
		emptyVersion := versionStyle.Render("")
		totalSizeStr := totalSizeStyle.Render(util.FormatBytes(totalSize))

		if _, err := fmt.Fprintf(out, "\n%s  %s  %s\n", totalName, emptyVersion, totalSizeStr); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	return nil
}

// printToolInfo writes one line per cached version and returns their combined size.
func printToolInfo(out io.Writer, t *tool.Tool, home string) (int64, error) {
	versions, err := t.CachedVersions()
	if err != nil {
		return 0, fmt.Errorf("failed to get cached versions for %s: %w", t.Name, err)
	}

	toolName := toolNameStyle.Render(t.Name)

	if len(versions) == 0 {
		if _, err := fmt.Fprintf(out, "%s  %s\n", toolName, notCachedStyle.Render("(not cached)")); err != nil {
			return 0, fmt.Errorf("failed to write output: %w", err)
		}

		return 0, nil
	}

	var totalSize int64

	for i, v := range versions {
		totalSize += v.Size

		style := oldVersionStyle
		if i == 0 {
			style = latestStyle
		}

		if _, err := fmt.Fprintf(out, "%s  %s  %s  %s\n", toolName, style.Render(v.Version),
			sizeStyle.Render(util.FormatBytes(v.Size)), util.ShortenPath(v.Path, home)); err != nil {
			return 0, fmt.Errorf("failed to write output: %w", err)
		}
	}

	return totalSize, nil
}

func runToolsUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	registry := tool.NewRegistry(out)

	for _, t := range resolveTools(registry, args) {
		latest, err := t.LatestVersion(ctx)
		if err != nil {
			return fmt.Errorf("failed to get latest version for %s: %w", t.Name, err)
		}

		versions, err := t.CachedVersions()
		if err != nil {
			return fmt.Errorf("failed to get cached versions for %s: %w", t.Name, err)
		}

		cached := slices.ContainsFunc(versions, func(v tool.CachedVersion) bool {
			return v.Version == latest
		})

		if cached {
			if _, err := fmt.Fprintf(out, "%s %s %s\n", toolNameStyle.Render(t.Name),
				latestStyle.Render(latest), infoStyle.Render("already cached")); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}

			continue
		}

		if err := t.Download(ctx); err != nil {
			return fmt.Errorf("failed to download %s: %w", t.Name, err)
		}
	}

	return nil
}

// resolveTools returns the named tools, or all of them when names is empty.
// Unknown names are skipped.
func resolveTools(registry *tool.Registry, names []string) []*tool.Tool {
	if len(names) == 0 {
		return registry.AllTools()
	}

	tools := make([]*tool.Tool, 0, len(names))

	for _, name := range names {
		if t := registry.Get(name); t != nil {
			tools = append(tools, t)
		}
	}

	return tools
}
