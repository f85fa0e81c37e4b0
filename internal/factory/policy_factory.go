package factory

import (
	"fmt"

	"github.com/phishfinder/phishfinder/internal/config"
	"github.com/phishfinder/phishfinder/internal/core"
)

// BuildPolicy assembles the risk policy from configuration, starting from
// the documented defaults so a partial config stays sane.
func BuildPolicy(cfg *config.Config) (core.Policy, error) {
	policy := core.DefaultPolicy()

	if v := cfg.GetInt("policy.keyword_caution_min"); v > 0 {
		policy.KeywordCautionMin = v
	}
	if v := cfg.GetFloat64("policy.history_flagged_ratio"); v > 0 {
		policy.HistoryFlaggedRatio = v
	}
	if v := cfg.GetInt("policy.history_min_observations"); v > 0 {
		policy.HistoryMinObservations = int64(v)
	}
	if v := cfg.GetFloat64("policy.ai_score_caution_min"); v > 0 {
		policy.AIScoreCautionMin = v
	}
	window, err := cfg.GetDuration("policy.new_sender_window")
	if err != nil {
		return policy, fmt.Errorf("invalid policy.new_sender_window: %w", err)
	}
	if window > 0 {
		policy.NewSenderWindow = window
	}

	return policy, nil
}
