package tool

import "io"

const (
	// CMockName is the registry name of the CMock release.
	CMockName = "cmock"
	// CMockEntrypoint is the CMock command-line script inside a release tree.
	CMockEntrypoint = "lib/cmock.rb"
	// UnityName is the registry name of the Unity release.
	UnityName = "unity"
)

// NewCMock creates a Tool for CMock. version may be empty, an exact tag or a semver constraint.
func NewCMock(progress io.Writer, version string) *Tool {
	return NewToolFromConfig(cmockConfig(version), progress)
}

// NewUnity creates a Tool for the Unity test framework.
func NewUnity(progress io.Writer, version string) *Tool {
	return NewToolFromConfig(unityConfig(version), progress)
}
