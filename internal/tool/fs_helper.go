package tool

import (
	"os"

	"github.com/spf13/afero"
)

// exists checks if a file exists and is not a directory.
func exists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

// isDir checks if a path exists and is a directory.
func isDir(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// dirSize sums the sizes of all regular files below root.
func dirSize(fs afero.Fs, root string) (int64, error) {
	var size int64

	err := afero.Walk(fs, root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.Mode().IsRegular() {
			size += info.Size()
		}

		return nil
	})

	return size, err
}
