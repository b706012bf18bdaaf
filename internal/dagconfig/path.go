package dagconfig

import (
	"fmt"
	"os"
	"path/filepath"
)

// resolvePath returns the .hcl files at path: path itself if it's a file,
// or every .hcl file found by recursively walking it if it's a directory.
func resolvePath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("dagconfig: path not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("dagconfig: accessing path %s: %w", path, err)
	}

	if !info.IsDir() {
		if filepath.Ext(path) != ".hcl" {
			return nil, fmt.Errorf("dagconfig: not an .hcl file: %s", path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".hcl" {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dagconfig: walking %s: %w", path, err)
	}
	return files, nil
}
