// Package scan discovers bibliography files in a folder.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file extensions scanned when none are given.
var DefaultExtensions = []string{".ris"}

var (
	// ErrFolderNotFound is returned when the folder does not exist.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrNotDirectory is returned when the path is not a directory.
	ErrNotDirectory = errors.New("not a folder")
)

// Options controls ScanFolder.
type Options struct {
	// Extensions to match, compared case-insensitively. Empty means DefaultExtensions.
	Extensions []string
	// Recursive descends into subfolders.
	Recursive bool
	// IncludeHidden keeps files under dot-prefixed path components.
	IncludeHidden bool
}

// DefaultOptions scans recursively for RIS files, skipping hidden paths.
func DefaultOptions() Options {
	return Options{Recursive: true}
}

// ScanFolder returns the absolute paths of the supported files under folder,
// sorted by lowercased path.
func ScanFolder(folder string, opts Options) ([]string, error) {
	root, err := filepath.Abs(expandHome(folder))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve folder %s: %w", folder, err)
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, root)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			if !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks count when they point at a regular file.
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			if fi, statErr := os.Stat(path); statErr != nil || !fi.Mode().IsRegular() {
				return nil //nolint:nilerr // dangling links are skipped
			}
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // cannot happen under root
		}
		if !opts.IncludeHidden && isHidden(rel) {
			return nil
		}
		if want[strings.ToLower(filepath.Ext(path))] {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.SliceStable(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
	return paths, nil
}

// isHidden reports whether any component of the relative path starts with a dot.
func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
