package fsops

import "os"

// ReadFile reads a file addressed by a relative path under the sandbox root.
// Policy violations come back as safety.ToolError; I/O failures as standard errors.
func (s *Sandbox) ReadFile(relPath string, exts ...string) (string, error) {
	absPath, err := s.ResolveFile(relPath, exts...)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
