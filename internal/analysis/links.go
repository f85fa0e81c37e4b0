package analysis

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// defaultShorteners is the denylist of known URL-redirection services that
// hide the final destination domain.
var defaultShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd",
}

var (
	// Anchor extraction mirrors the display/target split an email client
	// renders: target from href, display from the inner text. Non-greedy
	// display, case-insensitive tags.
	anchorPattern = regexp.MustCompile(`(?is)<a\s+(?:[^>]*?\s+)?href=["'](https?://[^"']+)["'][^>]*>(.*?)</a>`)

	// Free-text URL scan for bare links outside markup.
	bareURLPattern = regexp.MustCompile(`(?i)https?://[^\s<>"]+|www\.[^\s<>"]+`)

	dottedQuad = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

	// Hosts with characters outside the usual label alphabet, doubled
	// separators or empty labels are a common obfuscation trick.
	unusualHost = regexp.MustCompile(`[^a-zA-Z0-9.-]|--|\.\.`)
)

// LinkAnalyzer extracts hyperlinks from message bodies and flags the
// structural risks each one carries.
type LinkAnalyzer struct {
	shorteners map[string]struct{}
	logger     *zap.Logger
}

// NewLinkAnalyzer creates a link analyzer with the default shortener
// denylist.
func NewLinkAnalyzer(logger *zap.Logger) *LinkAnalyzer {
	shorteners := make(map[string]struct{}, len(defaultShorteners))
	for _, d := range defaultShorteners {
		shorteners[d] = struct{}{}
	}
	return &LinkAnalyzer{shorteners: shorteners, logger: logger}
}

// Analyze extracts every anchor from the structure-preserving HTML and
// every bare URL from the plain text, in document order. Anchor duplicates
// are kept distinct per occurrence; bare URLs already seen as anchor
// targets are not re-counted. A bad anchor never aborts the scan of the
// remaining anchors.
func (a *LinkAnalyzer) Analyze(preservedHTML, plainText string) []core.ExtractedLink {
	var links []core.ExtractedLink
	targets := make(map[string]struct{})

	for _, m := range anchorPattern.FindAllStringSubmatch(preservedHTML, -1) {
		link, ok := a.analyzeAnchor(m[1], m[2])
		if !ok {
			continue
		}
		targets[link.TargetURL] = struct{}{}
		links = append(links, link)
	}

	for _, raw := range bareURLPattern.FindAllString(plainText, -1) {
		raw = strings.TrimRight(raw, ".,;:!?)")
		if _, dup := targets[raw]; dup {
			continue
		}
		link := core.ExtractedLink{TargetURL: raw}
		a.flagHost(&link)
		links = append(links, link)
	}

	return links
}

// analyzeAnchor builds an ExtractedLink for a single href/display pair.
// Returns ok=false only when the target is unusable; the caller moves on
// to the next anchor.
func (a *LinkAnalyzer) analyzeAnchor(target, display string) (core.ExtractedLink, bool) {
	display = strings.TrimSpace(html.UnescapeString(markupTags.ReplaceAllString(display, "")))

	link := core.ExtractedLink{
		TargetURL:   target,
		DisplayText: display,
	}
	a.flagHost(&link)

	// Mismatch check only applies when the display text itself looks like
	// a URL; "Click here" display text is not a mismatch.
	if displayURL := bareURLPattern.FindString(display); displayURL != "" {
		displayHost := hostOf(displayURL)
		if displayHost != "" && !strings.Contains(strings.ToLower(target), displayHost) {
			link.HasMismatch = true
		}
	}

	return link, true
}

// flagHost sets the host-derived risk flags on a link.
func (a *LinkAnalyzer) flagHost(link *core.ExtractedLink) {
	host := hostOf(link.TargetURL)
	if host == "" {
		a.logger.Debug("Skipping host checks for unparseable URL",
			zap.String("url", link.TargetURL))
		return
	}
	if dottedQuad.MatchString(host) {
		link.IsIPLiteral = true
	}
	if _, listed := a.shorteners[strings.TrimPrefix(host, "www.")]; listed {
		link.IsShortener = true
	}
	if unusualHost.MatchString(host) {
		link.HasUnusualHost = true
	}
}

// hostOf extracts the lowercased host from a URL-ish string, tolerating a
// missing scheme ("www.example.com/x"). Returns "" when no host can be
// derived.
func hostOf(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
