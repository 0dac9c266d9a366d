package fsops

import (
	"os"
	"sort"

	"github.com/petasbytes/figaro/internal/safety"
)

// ListFiles lists non-recursive directory entries for a relative directory path
// under the sandbox. Directories are suffixed by "/"; names are sorted.
func (s *Sandbox) ListFiles(relDir string) ([]string, error) {
	if safety.NormalizeModelPath(relDir) == "" {
		relDir = "."
	}
	absDir, err := safety.Confine(s.root, relDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		// Hidden bookkeeping directories are never listed.
		if e.Name() == ".git" || e.Name() == ".agent" {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
