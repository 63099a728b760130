// Package crops holds the naming rules shared by the flattener and the
// dataset builder: how a category and a file name combine into a flat name,
// and how a label is read back out of one.
package crops

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// PointCloudExt is the extension of the source point clouds.
	PointCloudExt = ".ply"
	// SceneExt is the extension of the scene files written next to them.
	SceneExt = ".fo3d"
	// Unknown is the label of a file whose name carries no category prefix.
	Unknown = "Unknown"

	separator = "-"
)

// FlatName returns the name a file gets once moved out of its category directory.
func FlatName(category, filename string) string {
	return category + separator + filename
}

// Label returns the category prefix of a flattened file name: everything
// before the first hyphen once ext is stripped. Names without a hyphen
// yield Unknown.
func Label(filename, ext string) string {
	name := strings.TrimSuffix(filename, ext)
	prefix, _, found := strings.Cut(name, separator)
	if !found {
		return Unknown
	}
	return prefix
}

// SceneName swaps the point-cloud extension of filename for sceneExt.
func SceneName(filename, ext, sceneExt string) string {
	return strings.TrimSuffix(filename, ext) + sceneExt
}

// ListFiles returns the regular files in dir with extension ext, sorted by
// name. Symlinks count as the file they point to.
func ListFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ext {
			continue
		}
		if mode, ok := resolveType(dir, e); ok && mode.IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListDirs returns the subdirectories of dir, sorted by name. Symlinks to
// directories are included.
func ListDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if mode, ok := resolveType(dir, e); ok && mode.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// resolveType follows a symlink entry to its target. Dangling links report false.
func resolveType(dir string, e fs.DirEntry) (fs.FileMode, bool) {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.Type(), true
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	if err != nil {
		return 0, false
	}
	return info.Mode().Type(), true
}

// CountByCategory counts, for each category, the files in dir named
// "<category>-*<ext>". Categories with no files are left out.
func CountByCategory(dir, ext string, categories []string) (map[string]int, error) {
	names, err := ListFiles(dir, ext)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, category := range categories {
		prefix := category + separator
		for _, name := range names {
			if strings.HasPrefix(name, prefix) {
				counts[category]++
			}
		}
	}
	return counts, nil
}
