package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

type ScriptInput struct {
	FilePath string `json:"file_path" jsonschema_description:"Relative path of the attached Python script."`
}

// ExecutePythonScript runs an attached .py file with the configured interpreter.
// The working directory is the attachments root.
func ExecutePythonScript(env Env) ToolDefinition {
	return NewTool("execute_python_script", "Execute a Python script and return the output.",
		func(ctx context.Context, in ScriptInput) (string, error) {
			if env.Files == nil {
				return "", errNoSandbox
			}
			path, err := env.Files.ResolveFile(in.FilePath, ".py")
			if err != nil {
				return "", err
			}
			bin := env.PythonBin
			if bin == "" {
				bin = "python3"
			}

			var stdout, stderr bytes.Buffer
			cmd := exec.CommandContext(ctx, bin, filepath.Base(path))
			cmd.Dir = filepath.Dir(path)
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			if err := cmd.Run(); err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					return "", fmt.Errorf("script exited with code %d: %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
				}
				return "", fmt.Errorf("run script: %w", err)
			}

			out := strings.TrimSpace(stdout.String())
			if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
				out += "\n[stderr]\n" + errOut
			}
			if out == "" {
				out = "script produced no output"
			}
			return env.clamp(out), nil
		})
}
