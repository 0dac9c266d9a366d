package tools

import "context"

type ReverseStringInput struct {
	String string `json:"string" jsonschema_description:"The string to reverse."`
}

var ReverseStringDefinition = NewTool("reverse_string",
	"Reverse a string. Use it to decode a question that was written backwards, then answer the decoded question.",
	func(_ context.Context, in ReverseStringInput) (string, error) {
		return reverseRunes(in.String), nil
	})

func reverseRunes(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
