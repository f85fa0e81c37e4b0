package analysis

import (
	"html"
	"regexp"
	"strings"

	"github.com/jaytaylor/html2text"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// SanitizedBody is the two-variant output of the sanitizer: a clean plain
// text for keyword and reputation scanning, and a structure-preserving HTML
// variant for anchor extraction.
type SanitizedBody struct {
	PlainText     string
	PreservedHTML string
	// Degraded is set when proper HTML conversion failed and the plain
	// text came from a crude tag strip, or when sanitization failed
	// entirely and the raw body was passed through. Verdicts computed
	// from degraded text carry less confidence and are marked as such.
	Degraded bool
}

var (
	lineEndings  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	blankRuns    = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	markupTags   = regexp.MustCompile(`<[^>]*>`)
	sigDelimiter = regexp.MustCompile(`(?m)^--\s*$`)
	sentFromSig  = regexp.MustCompile(`(?m)^Sent from`)
)

// Sanitizer turns raw message bodies into analyzable text.
type Sanitizer struct {
	logger *zap.Logger
}

// NewSanitizer creates a new body sanitizer.
func NewSanitizer(logger *zap.Logger) *Sanitizer {
	return &Sanitizer{logger: logger}
}

// Sanitize cleans a raw body. It never fails: malformed input falls back to
// the raw body in both fields with the Degraded flag set.
func (s *Sanitizer) Sanitize(body string, isHTML bool) (result SanitizedBody) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("Sanitizer panicked, passing body through unsanitized",
				zap.Any("cause", r))
			result = SanitizedBody{PlainText: body, PreservedHTML: body, Degraded: true}
		}
	}()

	preserved := normalizeWhitespace(body)

	plain := body
	degraded := false
	if isHTML {
		text, err := html2text.FromString(body, html2text.Options{TextOnly: true})
		if err != nil {
			// Crude fallback: strip tags, decode entities. Good enough
			// for keyword scanning but flagged as degraded.
			s.logger.Warn("HTML conversion failed, falling back to tag strip",
				zap.Error(err))
			text = html.UnescapeString(markupTags.ReplaceAllString(body, " "))
			degraded = true
		}
		plain = text
	} else {
		plain = html.UnescapeString(plain)
	}

	plain = norm.NFKC.String(plain)
	plain = truncateAtSignature(plain)
	plain = normalizeWhitespace(plain)

	return SanitizedBody{
		PlainText:     plain,
		PreservedHTML: preserved,
		Degraded:      degraded,
	}
}

// normalizeWhitespace normalizes line endings to \n, collapses runs of
// three or more newlines (blank-line runs) down to a single blank line and
// trims surrounding whitespace. Idempotent.
func normalizeWhitespace(text string) string {
	text = lineEndings.Replace(text)
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// truncateAtSignature drops everything from a signature delimiter line
// ("-- ") or a "Sent from" marker onward. Signatures are boilerplate and
// only add keyword noise.
func truncateAtSignature(text string) string {
	if loc := sigDelimiter.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if loc := sentFromSig.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return text
}
