// Package fsops gives tools read-only access to question attachments.
package fsops

import (
	"fmt"
	"os"

	"github.com/petasbytes/figaro/internal/safety"
)

// Sandbox reads files under a single resolved root. It holds no mutable state
// and is safe for concurrent use.
type Sandbox struct {
	root string
}

// New resolves root once. The directory does not need to exist yet.
func New(root string) (*Sandbox, error) {
	abs, err := safety.ResolveRoot(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox root: %w", err)
	}
	return &Sandbox{root: abs}, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string { return s.root }

// ResolveFile confines relPath to the sandbox and checks it names a regular file.
// If exts are given, the file extension must be one of them.
func (s *Sandbox) ResolveFile(relPath string, exts ...string) (string, error) {
	absPath, err := safety.Confine(s.root, relPath)
	if err != nil {
		return "", err
	}
	if len(exts) > 0 {
		if err := safety.RequireExtension(absPath, exts...); err != nil {
			return "", err
		}
	}
	fi, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", safety.ToolError{Code: safety.CodeNotAFile, Message: "path is a directory"}
	}
	return absPath, nil
}
