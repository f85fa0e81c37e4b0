package analysis

import (
	"strings"
)

// DefaultLexicon is the curated phishing lexicon: urgency, credential
// reset, fax/voicemail lures and document-share lures. Matching is
// case-insensitive substring matching, so multi-word phrases match inside
// longer sentences.
var DefaultLexicon = []string{
	"urgent", "password", "suspicious", "reset", "verify", "account",
	"security", "bank", "request", "reconfirm password", "account alert",
	"confirmation", "account reset", "payments", "reminder", "confidential",
	"you recieved", "voice messages", "voicemail from", "immediate response",
	"voic(e)message", "vm from", "action required", "audio message",
	"account suspended", "voice recording available", "password reset",
	"received fax document", "sign-in attempt", "bill invoice", "re: invoice",
	"missing inv", "new message from", "new scanned fax doc-delivery for",
	"new faxtransmission from", "message from", "you have a new message",
	"telephone message for", "verification required", "expiration notice",
	"password expire", "attention required. support id:",
	"you have a google drive file shared", "sent you some files",
	"request for quote", "your service request", "request notification",
	"you have received a new document", "document for",
	"view attached documents", "shared a document with you",
}

// KeywordScanner matches a fixed lexicon against message text.
type KeywordScanner struct {
	terms []string
}

// NewKeywordScanner creates a scanner for the given terms; nil or empty
// falls back to DefaultLexicon. Terms are case-folded and deduplicated.
func NewKeywordScanner(terms []string) *KeywordScanner {
	if len(terms) == 0 {
		terms = DefaultLexicon
	}
	seen := make(map[string]struct{}, len(terms))
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}
	return &KeywordScanner{terms: normalized}
}

// Scan returns the lexicon terms found in text, in lexicon order. Pure
// function; an empty result means the lexicon revealed nothing.
func (s *KeywordScanner) Scan(text string) []string {
	folded := strings.ToLower(text)
	var matched []string
	for _, term := range s.terms {
		if strings.Contains(folded, term) {
			matched = append(matched, term)
		}
	}
	return matched
}
