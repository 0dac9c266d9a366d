package runner

import "strings"

// FinalAnswerMarker introduces the answer in the model's final message.
const FinalAnswerMarker = "FINAL ANSWER:"

// ExtractFinalAnswer returns the text after the last FINAL ANSWER: marker, or
// the trimmed content and false when the marker is missing.
func ExtractFinalAnswer(content string) (string, bool) {
	i := strings.LastIndex(content, FinalAnswerMarker)
	if i < 0 {
		return strings.TrimSpace(content), false
	}
	return strings.TrimSpace(content[i+len(FinalAnswerMarker):]), true
}
