package cli

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	axonerrors "github.com/toyz/axonroute/internal/errors"
)

var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
	"build":        true,
	"dist":         true,
}

// DirectoryScanner finds directories holding Go files
type DirectoryScanner struct{}

func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{}
}

// ScanDirectories resolves the patterns to absolute package directories.
// A pattern ending in "/..." is scanned recursively; other patterns name a
// single directory. Directories are returned sorted and deduplicated.
func (s *DirectoryScanner) ScanDirectories(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, pattern := range patterns {
		recursive := pattern == "..." || strings.HasSuffix(pattern, "/...")
		base := strings.TrimSuffix(strings.TrimSuffix(pattern, "..."), "/")
		if base == "" {
			base = "."
		}
		abs, err := filepath.Abs(base)
		if err != nil {
			return nil, axonerrors.Wrap(axonerrors.ConfigurationErrorCode, "cannot resolve "+base, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, axonerrors.Wrap(axonerrors.ConfigurationErrorCode, "cannot scan "+pattern, err)
		}
		if !info.IsDir() {
			return nil, axonerrors.ConfigurationError("directory", pattern+" is not a directory")
		}

		if !recursive {
			if ok, err := hasGoFiles(abs); err != nil {
				return nil, err
			} else if ok {
				add(abs)
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != abs && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			ok, err := hasGoFiles(path)
			if err != nil {
				return err
			}
			if ok {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, axonerrors.Wrap(axonerrors.ConfigurationErrorCode, "cannot scan "+pattern, err)
		}
	}

	sort.Strings(dirs)
	return dirs, nil
}

func skipDir(name string) bool {
	return skipDirs[name] || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// goFile reports whether name is a Go source file worth scanning
func goFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func hasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && goFile(e.Name()) {
			return true, nil
		}
	}
	return false, nil
}
