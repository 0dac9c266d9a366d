package tools

import (
	"context"
	"strings"
)

type ListFilesInput struct {
	Path string `json:"path,omitempty" jsonschema_description:"Optional relative directory to list. Defaults to the attachments root."`
}

type ReadFileInput struct {
	Path string `json:"path" jsonschema_description:"The relative path of a text file in the attachments directory."`
}

func ListFiles(env Env) ToolDefinition {
	return NewTool("list_files", "List the attached files. Directories end with a slash.",
		func(_ context.Context, in ListFilesInput) (string, error) {
			if env.Files == nil {
				return "", errNoSandbox
			}
			entries, err := env.Files.ListFiles(in.Path)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "no files", nil
			}
			return env.clamp(strings.Join(entries, "\n")), nil
		})
}

func ReadFile(env Env) ToolDefinition {
	return NewTool("read_file", "Read the contents of an attached text file. Do not use this with directory names.",
		func(_ context.Context, in ReadFileInput) (string, error) {
			if env.Files == nil {
				return "", errNoSandbox
			}
			content, err := env.Files.ReadFile(in.Path)
			if err != nil {
				return "", err
			}
			return env.clamp(content), nil
		})
}
