package utils

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxBytes int
		want     string
	}{
		{name: "short text untouched", text: "hello", maxBytes: 10, want: "hello"},
		{name: "exact length untouched", text: "hello", maxBytes: 5, want: "hello"},
		{name: "simple truncation", text: "hello world", maxBytes: 5, want: "hello"},
		{name: "never splits a rune", text: "héllo", maxBytes: 2, want: "h"},
		{name: "zero means no limit", text: "hello", maxBytes: 0, want: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateUTF8(tt.text, tt.maxBytes)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "hello", SanitizeUTF8("hello"))

	fixed := SanitizeUTF8("bad\xffbyte")
	assert.True(t, utf8.ValidString(fixed))
	assert.Contains(t, fixed, "bad")
	assert.Contains(t, fixed, "byte")
}
