package core

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidEmail is returned when an email is structurally unusable for
// analysis (missing id or missing body). Callers must surface this as an
// "unknown" verdict, never as "secure".
var ErrInvalidEmail = errors.New("email is missing required id or body")

// RiskLevel is the four-tier verdict ordered by severity. RiskUnknown sits
// outside the order and is only used for emails whose analysis failed.
type RiskLevel int

const (
	RiskUnknown RiskLevel = iota
	RiskSecure
	RiskCaution
	RiskWarning
	RiskHighRisk
)

func (r RiskLevel) String() string {
	switch r {
	case RiskSecure:
		return "secure"
	case RiskCaution:
		return "caution"
	case RiskWarning:
		return "warning"
	case RiskHighRisk:
		return "high-risk"
	default:
		return "unknown"
	}
}

// Sender identifies the message author as reported by the provider.
type Sender struct {
	Address     string
	DisplayName string
	Domain      string
}

// Header is a single raw message header. Order matters for Received-chain
// analysis, so headers are kept as an ordered list rather than a map.
type Header struct {
	Name  string
	Value string
}

// NormalizedEmail is the provider-independent representation of a message.
// It is constructed once by the ingest collaborator and never mutated.
type NormalizedEmail struct {
	ID            string
	Sender        Sender
	Subject       string
	Snippet       string
	SentAt        time.Time
	BodyPlainText string
	BodyHTML      string
	RawHeaders    []Header
}

// Header returns the first raw header with the given name, or "".
func (e *NormalizedEmail) Header(name string) string {
	for _, h := range e.RawHeaders {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Headers returns all raw headers with the given name in document order.
func (e *NormalizedEmail) Headers(name string) []string {
	var values []string
	for _, h := range e.RawHeaders {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// HasBody reports whether the message carries any analyzable content.
func (e *NormalizedEmail) HasBody() bool {
	return e.BodyPlainText != "" || e.BodyHTML != "" || e.Snippet != ""
}

// ExtractedLink is one hyperlink found in a message body. Derived per
// analysis, never persisted. Duplicate target/display pairs are kept as
// distinct entries because repeated mismatches still count toward link risk.
type ExtractedLink struct {
	TargetURL      string
	DisplayText    string
	IsIPLiteral    bool
	IsShortener    bool
	HasMismatch    bool
	HasUnusualHost bool
}

// IsSuspicious reports whether the link warrants a warning-tier signal on
// its own: a shortener or IP-literal target obscuring the real destination.
func (l ExtractedLink) IsSuspicious() bool {
	return l.IsIPLiteral || l.IsShortener
}

// AuthResult is one mechanism's normalized verdict.
type AuthResult string

const (
	AuthPass    AuthResult = "pass"
	AuthFail    AuthResult = "fail"
	AuthNeutral AuthResult = "neutral"
	AuthNone    AuthResult = "none"
)

// DMARCPolicy classifies the sender domain's published DMARC policy.
type DMARCPolicy string

const (
	PolicyNone       DMARCPolicy = "none"
	PolicyQuarantine DMARCPolicy = "quarantine"
	PolicyReject     DMARCPolicy = "reject"
	PolicyAbsent     DMARCPolicy = "absent"
)

// AuthenticationVerdict holds the normalized SPF/DKIM/DMARC results for one
// message. Every field is always one of the defined values; an adapter that
// cannot evaluate a mechanism reports AuthNeutral rather than leaving it
// undefined.
type AuthenticationVerdict struct {
	SPF         AuthResult
	DKIM        AuthResult
	DMARC       AuthResult
	DMARCPolicy DMARCPolicy
}

// NeutralVerdict is the degraded verdict used when authentication
// evaluation fails entirely.
func NeutralVerdict() AuthenticationVerdict {
	return AuthenticationVerdict{
		SPF:         AuthNeutral,
		DKIM:        AuthNeutral,
		DMARC:       AuthNeutral,
		DMARCPolicy: PolicyAbsent,
	}
}

// Absent reports whether no mechanism produced any verdict at all.
func (v AuthenticationVerdict) Absent() bool {
	return v.SPF == AuthNone && v.DKIM == AuthNone && v.DMARC == AuthNone
}

// HardFail reports an outright failure on any mechanism.
func (v AuthenticationVerdict) HardFail() bool {
	return v.SPF == AuthFail || v.DKIM == AuthFail || v.DMARC == AuthFail
}

// SenderProfile aggregates what we have seen from one sender address.
// Counters are monotonic and survive restarts when a durable store is
// configured.
type SenderProfile struct {
	Address           string
	FirstSeenAt       time.Time
	TotalEmailsSeen   int64
	FlaggedEmailsSeen int64
}

// FlaggedRatio is the fraction of observed emails that were flagged.
func (p *SenderProfile) FlaggedRatio() float64 {
	if p.TotalEmailsSeen == 0 {
		return 0
	}
	return float64(p.FlaggedEmailsSeen) / float64(p.TotalEmailsSeen)
}

// ReputationMatch is one URL the reputation service reported as a threat.
type ReputationMatch struct {
	URL        string
	ThreatType string
}

// Signal names one heuristic that contributed to the verdict.
type Signal string

const (
	SignalReputationMatch  Signal = "reputation_match"
	SignalLinkMismatch     Signal = "link_mismatch"
	SignalAuthHardFail     Signal = "auth_hard_fail"
	SignalBadSenderHistory Signal = "bad_sender_history"
	SignalSuspiciousLink   Signal = "suspicious_link"
	SignalUnusualLinkHost  Signal = "unusual_link_host"
	SignalNewFlaggedSender Signal = "new_flagged_sender"
	SignalKeywordMatch     Signal = "keyword_match"
	SignalAuthAbsent       Signal = "auth_absent"
	SignalAIContent        Signal = "ai_generated_content"
)

// SecurityAnalysis is the immutable result of analyzing one message.
// RiskLevel is a pure function of the other fields plus the SenderProfile
// snapshot taken at analysis time; re-running the analysis produces a new
// value rather than patching this one.
type SecurityAnalysis struct {
	EmailID             string
	ProcessingID        string
	RiskLevel           RiskLevel
	MatchedKeywords     []string
	Links               []ExtractedLink
	ReputationMatches   []ReputationMatch
	Authentication      AuthenticationVerdict
	ContributingSignals []Signal
	// AIContentScore is the machine-generated-text likelihood in [0,1],
	// or -1 when the detector is disabled or degraded.
	AIContentScore float64
	// SanitizerDegraded marks analyses whose body could not be sanitized
	// and ran against raw content. Kept visible so such verdicts can be
	// treated with less confidence downstream.
	SanitizerDegraded bool
	AnalyzedAt        time.Time
}

// Flagged derives the boolean flag some consumers still want from the
// four-level taxonomy.
func (a *SecurityAnalysis) Flagged() bool {
	return a.RiskLevel != RiskSecure && a.RiskLevel != RiskUnknown
}
