package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("abstract", "abstract"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 10.0/11.0, Similarity("conclusion", "conclusions"), 1e-9)
	assert.Equal(t, 0.0, Similarity("abc", "xyz"))
}

func TestMatchHeading(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		headings []string
		wantRest string
		wantOK   bool
	}{
		{name: "exact", line: "Abstract", headings: []string{"abstract"}, wantOK: true},
		{name: "upper case", line: "ABSTRACT", headings: []string{"abstract"}, wantOK: true},
		{name: "numbered", line: "1. Introduction", headings: []string{"introduction"}, wantOK: true},
		{name: "singular variant", line: "5 Conclusion", headings: []string{"conclusions"}, wantOK: true},
		{
			name: "inline after colon", line: "Keywords: deep learning, OCR",
			headings: []string{"keywords"}, wantRest: "deep learning, OCR", wantOK: true,
		},
		{
			name: "split heading word", line: "Key words: a, b",
			headings: []string{"keywords"}, wantRest: "a, b", wantOK: true,
		},
		{
			name: "inline after dash", line: "Abstract — This paper",
			headings: []string{"abstract"}, wantRest: "This paper", wantOK: true,
		},
		{name: "body sentence", line: "Results show that the method works", headings: []string{"results"}, wantOK: false},
		{name: "other heading", line: "Introduction", headings: []string{"conclusions"}, wantOK: false},
		{name: "number only", line: "12", headings: []string{"abstract"}, wantOK: false},
		{name: "empty", line: "", headings: []string{"abstract"}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rest, ok := MatchHeading(tt.line, tt.headings...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}

func TestIsHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{line: "2.1 Related Work", want: true},
		{line: "3 Proposed Method", want: true},
		{line: "References", want: true},
		{line: "3 apples were eaten", want: false},
		{line: "The results are good", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHeading(tt.line))
		})
	}
}
