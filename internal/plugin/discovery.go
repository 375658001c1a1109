package plugin

import (
	"os"
	"path/filepath"
)

// Candidate is a plugin directory discovered under the plugins root.
type Candidate struct {
	// Name is the directory base name, which is the default registry key.
	Name string

	// Path is the full path to the plugin directory.
	Path string
}

// Discover enumerates the immediate subdirectories of root that contain a
// readable manifest file. Results follow directory-listing order; callers
// must not rely on it beyond display. A missing root yields no candidates.
func Discover(root string) ([]Candidate, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var candidates []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		info, err := os.Stat(filepath.Join(dir, ManifestFile))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, Candidate{Name: entry.Name(), Path: dir})
	}
	return candidates, nil
}

// CandidateNames returns just the names of discovered candidates.
func CandidateNames(root string) []string {
	candidates, err := Discover(root)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}
