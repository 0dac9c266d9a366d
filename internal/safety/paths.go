// Package safety confines model-supplied file paths to the attachments root.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Path policy codes.
const (
	CodeOutsideSandbox  = "ERR_PATH_OUTSIDE_SANDBOX"
	CodeDeniedRead      = "ERR_DENIED_READ"
	CodeNotAFile        = "ERR_NOT_A_FILE"
	CodeUnsupportedType = "ERR_UNSUPPORTED_TYPE"
	CodeEmptyPath       = "ERR_EMPTY_PATH"
)

// modelPathPrefix is how the system prompt tells the model attachments are referenced.
const modelPathPrefix = "file_path:"

// ResolveRoot returns the absolute, symlink-resolved form of root.
// An empty root means the current working directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}
	// Non-existent roots are kept as-is; Confine then fails on first use.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// NormalizeModelPath strips quoting and the "file_path:" marker models tend to
// copy verbatim from the question.
func NormalizeModelPath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, "\"'`")
	if len(p) >= len(modelPathPrefix) && strings.EqualFold(p[:len(modelPathPrefix)], modelPathPrefix) {
		p = strings.TrimSpace(p[len(modelPathPrefix):])
	}
	return p
}

// Confine resolves relPath against absRoot and returns an absolute path inside
// the sandbox. Absolute inputs, parent traversal, symlink escapes and anything
// under .git/ or .agent/ are rejected with a ToolError.
func Confine(absRoot, relPath string) (string, error) {
	relPath = NormalizeModelPath(relPath)
	if relPath == "" {
		return "", ToolError{Code: CodeEmptyPath, Message: "a file path is required"}
	}
	if filepath.IsAbs(relPath) {
		return "", ToolError{Code: CodeOutsideSandbox, Message: "absolute paths are not allowed"}
	}

	candidate := filepath.Join(absRoot, filepath.Clean(relPath))

	// Resolve the whole candidate when it exists, otherwise its parent, so that
	// a symlinked ancestor cannot smuggle the path out of the root.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else if resolvedParent, err := filepath.EvalSymlinks(filepath.Dir(candidate)); err == nil {
		candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
	}

	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", ToolError{Code: CodeOutsideSandbox, Message: "requested path resolves outside the sandbox root"}
	}

	first := strings.SplitN(filepath.ToSlash(rel), "/", 2)[0]
	if first == ".git" || first == ".agent" {
		return "", ToolError{Code: CodeDeniedRead, Message: "reads under .git/ or .agent/ are not allowed"}
	}
	return candidate, nil
}

// RequireExtension rejects paths whose extension is not one of exts (case-insensitive, with dot).
func RequireExtension(path string, exts ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(exts, ext) {
		return nil
	}
	return ToolError{
		Code:    CodeUnsupportedType,
		Message: fmt.Sprintf("unsupported file type %q; expected one of %s", ext, strings.Join(exts, ", ")),
	}
}
