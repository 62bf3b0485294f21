package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dennisklein/cmockgen/internal/tool"
)

const envUnityVersion = "CMOCKGEN_UNITY_VERSION"

func newCMockCmd() *cobra.Command {
	return newToolCmd(tool.CMockName, "Execute CMock's command-line script (auto-downloads if needed)", envCMockVersion)
}

func newUnityCmd() *cobra.Command {
	return newToolCmd(tool.UnityName, "Execute Unity's test runner generator (auto-downloads if needed)", envUnityVersion)
}

// newToolCmd creates a passthrough command for a cached Ruby tool.
// versionEnv names the variable that pins the release; unset means latest.
func newToolCmd(toolName, shortDesc, versionEnv string) *cobra.Command {
	return &cobra.Command{
		Use:   toolName,
		Short: shortDesc,
		Long: fmt.Sprintf("Lazily downloads a %s release and runs its entry script with Ruby, "+
			"passing through all arguments. The release is pinned with %s and the interpreter "+
			"can be overridden with %s.", toolName, versionEnv, envRuby),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := pinnedTool(toolName, os.Getenv(versionEnv), cmd.ErrOrStderr())
			if t == nil {
				return fmt.Errorf("unknown tool: %s", toolName)
			}

			return t.Exec(cmd.Context(), envOr(envRuby, defaultRuby), args)
		},
	}
}

// pinnedTool returns the registry tool, or a freshly pinned one when version is set.
func pinnedTool(name, version string, progress io.Writer) *tool.Tool {
	if version == "" {
		return tool.NewRegistry(progress).Get(name)
	}

	switch name {
	case tool.CMockName:
		return tool.NewCMock(progress, version)
	case tool.UnityName:
		return tool.NewUnity(progress, version)
	default:
		return nil
	}
}
