package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSanitizePlainText(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "collapses runs of blank lines to one",
			body: "first\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "keeps a single blank line",
			body: "first\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "normalizes CRLF line endings",
			body: "first\r\nsecond\r",
			want: "first\nsecond",
		},
		{
			name: "trims surrounding whitespace",
			body: "\n\n  hello  \n\n",
			want: "hello",
		},
		{
			name: "decodes entities",
			body: "fish &amp; chips",
			want: "fish & chips",
		},
		{
			name: "truncates at signature delimiter",
			body: "real content\n-- \nAlice\nVP of Everything",
			want: "real content",
		},
		{
			name: "truncates at Sent from marker",
			body: "real content\nSent from my iPhone",
			want: "real content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.body, false)
			assert.Equal(t, tt.want, got.PlainText)
			assert.False(t, got.Degraded)
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	body := "hello\r\n\r\n\r\n\r\nworld\n-- \nsig"
	once := s.Sanitize(body, false)
	twice := s.Sanitize(once.PlainText, false)

	assert.Equal(t, once.PlainText, twice.PlainText)
}

func TestSanitizeHTML(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	got := s.Sanitize("<p>Hello <b>world</b></p>", true)

	assert.Equal(t, "Hello world", got.PlainText)
	assert.Contains(t, got.PreservedHTML, "<p>", "markup must survive in the preserved variant")
	assert.False(t, got.Degraded)
}

func TestSanitizeHTMLKeepsAnchorsInPreserved(t *testing.T) {
	s := NewSanitizer(zap.NewNop())

	body := `<p>Check <a href="https://example.com/x">this</a> out</p>`
	got := s.Sanitize(body, true)

	assert.Contains(t, got.PreservedHTML, `href="https://example.com/x"`)
}
