package core

import "time"

// Policy collects every tunable threshold the risk aggregator uses as
// named, documented values instead of scattering them through the rules.
type Policy struct {
	// KeywordCautionMin is the minimum number of matched lexicon terms
	// before the keyword heuristic escalates to caution. A single generic
	// word like "account" matches too much legitimate mail, so the default
	// requires two.
	KeywordCautionMin int

	// HistoryFlaggedRatio and HistoryMinObservations gate the
	// bad-sender-history rule: the flagged ratio must exceed the former
	// with at least the latter observed emails, so sparse history cannot
	// trip a high-risk verdict.
	HistoryFlaggedRatio    float64
	HistoryMinObservations int64

	// NewSenderWindow is how recently a sender must have first appeared to
	// count as "new" for the new-flagged-sender rule.
	NewSenderWindow time.Duration

	// AIScoreCautionMin is the minimum AI-content score that contributes a
	// caution signal. Scores below it, or the sentinel -1, are ignored.
	AIScoreCautionMin float64
}

// DefaultPolicy returns the documented default thresholds.
func DefaultPolicy() Policy {
	return Policy{
		KeywordCautionMin:      2,
		HistoryFlaggedRatio:    0.5,
		HistoryMinObservations: 6,
		NewSenderWindow:        7 * 24 * time.Hour,
		AIScoreCautionMin:      0.7,
	}
}
