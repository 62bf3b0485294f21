package util

import (
	"fmt"
	"path/filepath"
	"strings"
)

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// FormatBytes formats a byte count into a human-readable string with binary units.
func FormatBytes(bytes int64) string {
	const unit = 1024

	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	value := float64(bytes) / unit
	exp := 0

	for value >= unit && exp < len(byteUnits)-1 {
		value /= unit
		exp++
	}

	return fmt.Sprintf("%.1f %s", value, byteUnits[exp])
}

// ShortenPath replaces a leading home directory with "~".
func ShortenPath(path, home string) string {
	if home == "" {
		return path
	}

	home = filepath.Clean(home)

	if path == home {
		return "~"
	}

	if strings.HasPrefix(path, home+string(filepath.Separator)) {
		return "~" + path[len(home):]
	}

	return path
}
