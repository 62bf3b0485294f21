package tool

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

const appName = "cmockgen"

// DataDir returns the appropriate data directory following XDG Base Directory spec.
// Priority: XDG_DATA_HOME > ~/.local/share (if exists) > ~/.cmockgen (fallback).
func DataDir(fs afero.Fs) (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	xdgDefault := filepath.Join(homeDir, ".local", "share")
	if isDir(fs, xdgDefault) {
		return xdgDefault, nil
	}

	return filepath.Join(homeDir, "."+appName), nil
}
