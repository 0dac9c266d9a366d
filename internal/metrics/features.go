package metrics

import (
	"strings"
	"unicode/utf8"
)

// Features holds basic local text features derived from a question.
type Features struct {
	Bytes       int
	Runes       int
	Words       int
	Lines       int
	URLs        int
	Attachments int
}

// CountFeatures computes size counts plus the number of URLs and
// "file_path:" attachment references in s.
func CountFeatures(s string) Features {
	f := Features{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Lines: countLines(s),
	}
	for _, w := range strings.Fields(s) {
		f.Words++
		lw := strings.ToLower(w)
		if strings.HasPrefix(lw, "http://") || strings.HasPrefix(lw, "https://") {
			f.URLs++
		}
		if strings.Contains(lw, "file_path:") {
			f.Attachments++
		}
	}
	return f
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}
