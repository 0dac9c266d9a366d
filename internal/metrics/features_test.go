package metrics_test

import (
	"testing"

	"github.com/petasbytes/figaro/internal/metrics"
)

func TestCountFeatures_Table(t *testing.T) {
	cases := []struct {
		name string
		in   string
		exp  metrics.Features
	}{
		{
			name: "Empty",
			in:   "",
			exp:  metrics.Features{},
		},
		{
			name: "ASCII",
			in:   "hello world",
			exp:  metrics.Features{Bytes: 11, Runes: 11, Words: 2, Lines: 1},
		},
		{
			name: "Multibyte",
			in:   "héllö 世界", // bytes=14, runes=8
			exp:  metrics.Features{Bytes: 14, Runes: 8, Words: 2, Lines: 1},
		},
		{
			name: "Multiline_NoTrailing",
			in:   "a\nb\ncd",
			exp:  metrics.Features{Bytes: 6, Runes: 6, Words: 3, Lines: 3},
		},
		{
			name: "URLsAndAttachments",
			in:   "Explain https://www.youtube.com/watch?v=x and HTTP://a.b using file_path:data.xlsx",
			exp:  metrics.Features{Bytes: 82, Runes: 82, Words: 6, Lines: 1, URLs: 2, Attachments: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := metrics.CountFeatures(tc.in)
			if got != tc.exp {
				t.Fatalf("CountFeatures(%q) = %+v, want %+v", tc.in, got, tc.exp)
			}
		})
	}
}
