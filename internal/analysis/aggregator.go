package analysis

import (
	"time"

	"github.com/phishfinder/phishfinder/internal/allowlist"
	"github.com/phishfinder/phishfinder/internal/core"
)

// AggregateInput is the complete snapshot the verdict is computed from.
// Profile is the sender's history before the current message is recorded.
type AggregateInput struct {
	Sender            core.Sender
	Keywords          []string
	Links             []core.ExtractedLink
	ReputationMatches []core.ReputationMatch
	Authentication    core.AuthenticationVerdict
	Profile           *core.SenderProfile
	AIContentScore    float64
	Now               time.Time
}

// Aggregator combines the independent signals into one of the four ordered
// risk levels. Severity order, not signal count, drives the verdict: a
// reputation hit or structural spoofing is never masked by the absence of
// stylistic signals.
type Aggregator struct {
	policy core.Policy
	allow  *allowlist.Checker
}

// NewAggregator creates an aggregator with the given policy thresholds and
// ESP allow-list.
func NewAggregator(policy core.Policy, allow *allowlist.Checker) *Aggregator {
	return &Aggregator{policy: policy, allow: allow}
}

// Aggregate is a pure function of its input: identical inputs always yield
// the identical level and signal set. All fired signals are reported; the
// level is the highest tier any of them belongs to.
func (g *Aggregator) Aggregate(in AggregateInput) (core.RiskLevel, []core.Signal) {
	var high, warning, caution []core.Signal

	// Tier 1: active threats.
	if len(in.ReputationMatches) > 0 {
		high = append(high, core.SignalReputationMatch)
	}
	suspicious, unusual := false, false
	for _, link := range in.Links {
		switch {
		case link.HasMismatch:
			if !contains(high, core.SignalLinkMismatch) {
				high = append(high, core.SignalLinkMismatch)
			}
		case link.IsSuspicious():
			suspicious = true
		case link.HasUnusualHost:
			unusual = true
		}
	}
	if in.Authentication.HardFail() {
		high = append(high, core.SignalAuthHardFail)
	}
	if p := in.Profile; p != nil &&
		p.TotalEmailsSeen >= g.policy.HistoryMinObservations &&
		p.FlaggedRatio() > g.policy.HistoryFlaggedRatio {
		high = append(high, core.SignalBadSenderHistory)
	}

	// Tier 2: obscured destinations and senders with a short bad record.
	if suspicious {
		warning = append(warning, core.SignalSuspiciousLink)
	}
	if unusual {
		warning = append(warning, core.SignalUnusualLinkHost)
	}
	if p := in.Profile; p != nil &&
		p.FlaggedEmailsSeen >= 1 &&
		in.Now.Sub(p.FirstSeenAt) <= g.policy.NewSenderWindow {
		warning = append(warning, core.SignalNewFlaggedSender)
	}

	// Tier 3: stylistic signals.
	if len(in.Keywords) >= g.policy.KeywordCautionMin && !g.allow.IsAllowed(in.Sender.Domain) {
		caution = append(caution, core.SignalKeywordMatch)
	}
	if in.Authentication.Absent() {
		caution = append(caution, core.SignalAuthAbsent)
	}
	if in.AIContentScore >= 0 && in.AIContentScore >= g.policy.AIScoreCautionMin {
		caution = append(caution, core.SignalAIContent)
	}

	signals := append(append(high, warning...), caution...)
	switch {
	case len(high) > 0:
		return core.RiskHighRisk, signals
	case len(warning) > 0:
		return core.RiskWarning, signals
	case len(caution) > 0:
		return core.RiskCaution, signals
	default:
		return core.RiskSecure, nil
	}
}

func contains(signals []core.Signal, s core.Signal) bool {
	for _, have := range signals {
		if have == s {
			return true
		}
	}
	return false
}
