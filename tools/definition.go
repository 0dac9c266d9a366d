package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidArguments marks arguments rejected before a tool ran.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// ToolFunc runs a tool with the raw JSON arguments produced by the model.
type ToolFunc func(ctx context.Context, input json.RawMessage) (string, error)

type ToolDefinition struct {
	Name        string
	Description string
	InputSchema anthropic.ToolInputSchemaParam
	Function    ToolFunc
}

// GenerateSchema reflects T into the input schema advertised to the model.
// Fields without omitempty are required.
func GenerateSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}

// NewTool builds a definition whose handler receives decoded, validated input.
func NewTool[T any](name, description string, fn func(ctx context.Context, in T) (string, error)) ToolDefinition {
	schema := GenerateSchema[T]()
	required := schema.Required
	return ToolDefinition{
		Name:        name,
		Description: description,
		InputSchema: schema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in T
			if err := DecodeArguments(input, required, &in); err != nil {
				return "", err
			}
			return fn(ctx, in)
		},
	}
}

// DecodeArguments decodes a JSON object into out, which must be a pointer to a
// struct with json tags. Values are converted loosely ("2" decodes into a
// float64), but booleans never become numbers. Unknown keys are rejected and
// every required key must be present and non-null.
// All failures wrap ErrInvalidArguments.
func DecodeArguments(input json.RawMessage, required []string, out any) error {
	input = bytes.TrimSpace(input)
	if len(input) == 0 || bytes.Equal(input, []byte("null")) {
		input = []byte("{}")
	}
	var args map[string]any
	if err := json.Unmarshal(input, &args); err != nil {
		return fmt.Errorf("%w: arguments must be a JSON object: %v", ErrInvalidArguments, err)
	}
	for _, key := range required {
		v, ok := args[key]
		if !ok {
			return fmt.Errorf("%w: missing required argument %q", ErrInvalidArguments, key)
		}
		if v == nil {
			return fmt.Errorf("%w: required argument %q is null", ErrInvalidArguments, key)
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.DecodeHookFuncKind(rejectBoolToNumber),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}

func rejectBoolToNumber(from, to reflect.Kind, data any) (any, error) {
	if from != reflect.Bool {
		return data, nil
	}
	switch to {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return nil, fmt.Errorf("cannot use boolean %v as a number", data)
	}
	return data, nil
}
