package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/petasbytes/figaro/internal/fsops"
	"github.com/petasbytes/figaro/tools"
)

func call(t *testing.T, def tools.ToolDefinition, args string) (string, error) {
	t.Helper()
	return def.Function(context.Background(), json.RawMessage(args))
}

func mustCall(t *testing.T, def tools.ToolDefinition, args string) string {
	t.Helper()
	out, err := call(t, def, args)
	if err != nil {
		t.Fatalf("%s(%s): unexpected err: %v", def.Name, args, err)
	}
	return out
}

// sandboxEnv returns an Env over a temp attachments dir seeded with files.
func sandboxEnv(t *testing.T, files map[string]string) (tools.Env, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("prepare: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("prepare: %v", err)
		}
	}
	sb, err := fsops.New(root)
	if err != nil {
		t.Fatalf("sandbox: %v", err)
	}
	return tools.Env{Files: sb}, root
}

func TestMathTools(t *testing.T) {
	tests := []struct {
		def  tools.ToolDefinition
		args string
		want string
	}{
		{tools.AddDefinition, `{"toAdd":[2,3]}`, "5"},
		{tools.AddDefinition, `{"toAdd":["2",3.5]}`, "5.5"},
		{tools.AddDefinition, `{"toAdd":[]}`, "0"},
		{tools.SubtractDefinition, `{"a":10,"b":4}`, "6"},
		{tools.MultiplyDefinition, `{"a":6,"b":7}`, "42"},
		{tools.DivideDefinition, `{"a":7,"b":2}`, "3.5"},
		{tools.ModulusDefinition, `{"a":7,"b":3}`, "1"},
		{tools.ModulusDefinition, `{"a":-7,"b":3}`, "2"},
		{tools.PowerDefinition, `{"a":2,"b":10}`, "1024"},
		{tools.SquareRootDefinition, `{"a":9}`, "3"},
		{tools.SquareRootDefinition, `{"a":-4}`, "2i"},
	}
	for _, tt := range tests {
		t.Run(tt.def.Name+tt.args, func(t *testing.T) {
			if got := mustCall(t, tt.def, tt.args); got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}

func TestMathTools_ZeroDivisor(t *testing.T) {
	for _, def := range []tools.ToolDefinition{tools.DivideDefinition, tools.ModulusDefinition} {
		_, err := call(t, def, `{"a":1,"b":0}`)
		if err == nil || !strings.Contains(err.Error(), "divide by zero") {
			t.Fatalf("%s: expected divide by zero error, got %v", def.Name, err)
		}
		if errors.Is(err, tools.ErrInvalidArguments) {
			t.Fatalf("%s: zero divisor is a tool failure, not an argument error", def.Name)
		}
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		def  tools.ToolDefinition
		args string
	}{
		{"missing required", tools.SubtractDefinition, `{"a":1}`},
		{"unknown key", tools.SubtractDefinition, `{"a":1,"b":2,"c":3}`},
		{"not an object", tools.SubtractDefinition, `[1,2]`},
		{"malformed", tools.SubtractDefinition, `{"a":`},
		{"wrong type", tools.SubtractDefinition, `{"a":"x","b":2}`},
		{"null operand", tools.MultiplyDefinition, `{"a":null,"b":2}`},
		{"null list", tools.AddDefinition, `{"toAdd":null}`},
		{"boolean operand", tools.MultiplyDefinition, `{"a":true,"b":3}`},
		{"boolean in list", tools.AddDefinition, `{"toAdd":[1,false]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, tt.def, tt.args)
			if !errors.Is(err, tools.ErrInvalidArguments) {
				t.Fatalf("want ErrInvalidArguments, got %v", err)
			}
		})
	}
}

func TestReverseString(t *testing.T) {
	if got := mustCall(t, tools.ReverseStringDefinition, `{"string":"olleh"}`); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := mustCall(t, tools.ReverseStringDefinition, `{"string":"héllo"}`); got != "olléh" {
		t.Fatalf("runes not preserved: %q", got)
	}
}

func TestGenerateSchema_RequiredFields(t *testing.T) {
	if got := tools.AddDefinition.InputSchema.Required; len(got) != 1 || got[0] != "toAdd" {
		t.Fatalf("add required: %v", got)
	}
	if got := tools.SubtractDefinition.InputSchema.Required; len(got) != 2 {
		t.Fatalf("subtract required: %v", got)
	}
	if got := tools.ListFiles(tools.Env{}).InputSchema.Required; len(got) != 0 {
		t.Fatalf("list_files path is optional, got required %v", got)
	}
}

func TestFileTools(t *testing.T) {
	env, _ := sandboxEnv(t, map[string]string{
		"notes.txt":    "remember the basil",
		"sub/data.csv": "a\n1\n",
	})

	if got := mustCall(t, tools.ListFiles(env), `{}`); got != "notes.txt\nsub/" {
		t.Fatalf("list_files: %q", got)
	}
	if got := mustCall(t, tools.ListFiles(env), `{"path":"sub"}`); got != "data.csv" {
		t.Fatalf("list_files sub: %q", got)
	}
	if got := mustCall(t, tools.ReadFile(env), `{"path":"file_path:notes.txt"}`); got != "remember the basil" {
		t.Fatalf("read_file: %q", got)
	}

	_, err := call(t, tools.ReadFile(env), `{"path":"../outside.txt"}`)
	if err == nil || !strings.Contains(err.Error(), "ERR_PATH_OUTSIDE_SANDBOX") {
		t.Fatalf("expected sandbox violation, got %v", err)
	}
}

func TestFileTools_NoSandbox(t *testing.T) {
	if _, err := call(t, tools.ReadFile(tools.Env{}), `{"path":"a.txt"}`); err == nil {
		t.Fatal("expected error without an attachments directory")
	}
}
