package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolPassthroughCmds(t *testing.T) {
	for _, name := range []string{"cmock", "unity"} {
		t.Run("creates "+name+" command", func(t *testing.T) {
			cmd := newToolCmd(name, "run "+name, "PIN")

			require.NotNil(t, cmd)
			assert.Equal(t, name, cmd.Use)
			assert.Contains(t, cmd.Long, "PIN")
			assert.NotNil(t, cmd.RunE)

			// All flags belong to the passed-through script
			assert.True(t, cmd.DisableFlagParsing)
		})
	}

	t.Run("wires registry tools", func(t *testing.T) {
		assert.Equal(t, "cmock", newCMockCmd().Use)
		assert.Contains(t, newCMockCmd().Long, envCMockVersion)
		assert.Equal(t, "unity", newUnityCmd().Use)
		assert.Contains(t, newUnityCmd().Long, envUnityVersion)
	})

	t.Run("rejects unknown tool", func(t *testing.T) {
		t.Setenv("PIN", "")

		cmd := newToolCmd("nonexistent", "missing", "PIN")

		err := cmd.RunE(cmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool: nonexistent")
	})
}

func TestPinnedTool(t *testing.T) {
	t.Run("uses registry without pin", func(t *testing.T) {
		tl := pinnedTool("cmock", "", nil)

		require.NotNil(t, tl)
		assert.Equal(t, "lib/cmock.rb", tl.Entrypoint)
	})

	t.Run("pins exact versions", func(t *testing.T) {
		for _, name := range []string{"cmock", "unity"} {
			tl := pinnedTool(name, "v2.5.3", nil)
			require.NotNil(t, tl, name)

			version, err := tl.VersionFunc(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "v2.5.3", version)
		}
	})

	t.Run("returns nil for unknown tools", func(t *testing.T) {
		assert.Nil(t, pinnedTool("nonexistent", "", nil))
		assert.Nil(t, pinnedTool("nonexistent", "v1.0.0", nil))
	})
}

// Note: the passthrough itself calls syscall.Exec, which would replace the
// test process. It is covered by the e2e suite.
