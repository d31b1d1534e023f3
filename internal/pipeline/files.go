package pipeline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// UnitExt is the extension of encoded linear units.
const UnitExt = ".lin"

// ExpandInputs turns command-line arguments into a sorted, duplicate-free
// list of unit files. Directories are walked for *.lin files; plain files
// are taken as given whatever their extension.
func ExpandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, filepath.Clean(arg))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, UnitExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %q: %w", arg, err)
		}
	}
	files = lo.Uniq(files)
	sort.Strings(files)
	return files, nil
}

// DisplayNames shortens paths for progress output: relative to baseDir when
// they live under it, slash-separated.
func DisplayNames(files []string, baseDir string) []string {
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	out := make([]string, len(files))
	for i, file := range files {
		path := filepath.Clean(file)
		if base != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if rel, err := filepath.Rel(base, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		out[i] = filepath.ToSlash(path)
	}
	return out
}

// OutputName returns the .s file name for a unit file: the base name with
// its extension replaced.
func OutputName(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".s"
}
