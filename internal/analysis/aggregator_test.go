package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/allowlist"
	"github.com/phishfinder/phishfinder/internal/core"
)

func newTestAggregator() *Aggregator {
	return NewAggregator(core.DefaultPolicy(), allowlist.NewChecker(nil, zap.NewNop()))
}

// passVerdict is authentication that raises no signal of its own.
func passVerdict() core.AuthenticationVerdict {
	return core.AuthenticationVerdict{
		SPF:         core.AuthPass,
		DKIM:        core.AuthPass,
		DMARC:       core.AuthPass,
		DMARCPolicy: core.PolicyReject,
	}
}

func TestAggregateLevels(t *testing.T) {
	g := newTestAggregator()
	now := time.Now()

	tests := []struct {
		name        string
		in          AggregateInput
		wantLevel   core.RiskLevel
		wantSignals []core.Signal
	}{
		{
			name: "all signals benign is secure",
			in: AggregateInput{
				Sender:         core.Sender{Address: "alice@example.com", Domain: "example.com"},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel: core.RiskSecure,
		},
		{
			name: "reputation match dominates passing authentication",
			in: AggregateInput{
				ReputationMatches: []core.ReputationMatch{{URL: "http://bad.example/", ThreatType: "SOCIAL_ENGINEERING"}},
				Authentication:    passVerdict(),
				AIContentScore:    -1,
				Now:               now,
			},
			wantLevel:   core.RiskHighRisk,
			wantSignals: []core.Signal{core.SignalReputationMatch},
		},
		{
			name: "link mismatch is high-risk",
			in: AggregateInput{
				Links:          []core.ExtractedLink{{TargetURL: "http://evil.example/", HasMismatch: true}},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskHighRisk,
			wantSignals: []core.Signal{core.SignalLinkMismatch},
		},
		{
			name: "authentication hard fail is high-risk",
			in: AggregateInput{
				Authentication: core.AuthenticationVerdict{
					SPF: core.AuthFail, DKIM: core.AuthNeutral, DMARC: core.AuthNeutral,
					DMARCPolicy: core.PolicyAbsent,
				},
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskHighRisk,
			wantSignals: []core.Signal{core.SignalAuthHardFail},
		},
		{
			name: "bad sender history is high-risk",
			in: AggregateInput{
				Authentication: passVerdict(),
				Profile: &core.SenderProfile{
					Address: "spammer@example.com", FirstSeenAt: now.Add(-90 * 24 * time.Hour),
					TotalEmailsSeen: 6, FlaggedEmailsSeen: 4,
				},
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskHighRisk,
			wantSignals: []core.Signal{core.SignalBadSenderHistory},
		},
		{
			name: "sparse history never trips the high-risk rule",
			in: AggregateInput{
				Authentication: passVerdict(),
				Profile: &core.SenderProfile{
					Address: "new@example.com", FirstSeenAt: now.Add(-90 * 24 * time.Hour),
					TotalEmailsSeen: 2, FlaggedEmailsSeen: 2,
				},
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel: core.RiskSecure,
		},
		{
			name: "shortener link is warning",
			in: AggregateInput{
				Links:          []core.ExtractedLink{{TargetURL: "https://bit.ly/x", IsShortener: true}},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskWarning,
			wantSignals: []core.Signal{core.SignalSuspiciousLink},
		},
		{
			name: "unusual link host is warning",
			in: AggregateInput{
				Links:          []core.ExtractedLink{{TargetURL: "http://a_b.example/", HasUnusualHost: true}},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskWarning,
			wantSignals: []core.Signal{core.SignalUnusualLinkHost},
		},
		{
			name: "new sender with a prior flagged email is warning",
			in: AggregateInput{
				Authentication: passVerdict(),
				Profile: &core.SenderProfile{
					Address: "fresh@example.com", FirstSeenAt: now.Add(-3 * 24 * time.Hour),
					TotalEmailsSeen: 2, FlaggedEmailsSeen: 1,
				},
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskWarning,
			wantSignals: []core.Signal{core.SignalNewFlaggedSender},
		},
		{
			name: "two keyword matches are caution",
			in: AggregateInput{
				Sender:         core.Sender{Address: "alice@example.com", Domain: "example.com"},
				Keywords:       []string{"urgent", "password"},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskCaution,
			wantSignals: []core.Signal{core.SignalKeywordMatch},
		},
		{
			name: "one keyword match stays secure",
			in: AggregateInput{
				Sender:         core.Sender{Address: "alice@example.com", Domain: "example.com"},
				Keywords:       []string{"account"},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel: core.RiskSecure,
		},
		{
			name: "allow-listed bulk sender suppresses keyword caution",
			in: AggregateInput{
				Sender:         core.Sender{Address: "jobs@linkedin.com", Domain: "linkedin.com"},
				Keywords:       []string{"urgent", "password", "verify"},
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel: core.RiskSecure,
		},
		{
			name: "entirely absent authentication is caution",
			in: AggregateInput{
				Authentication: core.AuthenticationVerdict{
					SPF: core.AuthNone, DKIM: core.AuthNone, DMARC: core.AuthNone,
					DMARCPolicy: core.PolicyAbsent,
				},
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel:   core.RiskCaution,
			wantSignals: []core.Signal{core.SignalAuthAbsent},
		},
		{
			name: "high AI-content score is caution",
			in: AggregateInput{
				Authentication: passVerdict(),
				AIContentScore: 0.85,
				Now:            now,
			},
			wantLevel:   core.RiskCaution,
			wantSignals: []core.Signal{core.SignalAIContent},
		},
		{
			name: "detector sentinel raises nothing",
			in: AggregateInput{
				Authentication: passVerdict(),
				AIContentScore: -1,
				Now:            now,
			},
			wantLevel: core.RiskSecure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, signals := g.Aggregate(tt.in)
			assert.Equal(t, tt.wantLevel, level)
			assert.Equal(t, tt.wantSignals, signals)
		})
	}
}

func TestAggregateReportsAllFiredSignals(t *testing.T) {
	g := newTestAggregator()

	level, signals := g.Aggregate(AggregateInput{
		Sender:   core.Sender{Address: "x@example.com", Domain: "example.com"},
		Keywords: []string{"urgent", "password"},
		Links: []core.ExtractedLink{
			{TargetURL: "http://evil.example/", HasMismatch: true},
			{TargetURL: "https://bit.ly/x", IsShortener: true},
		},
		Authentication: passVerdict(),
		AIContentScore: -1,
		Now:            time.Now(),
	})

	assert.Equal(t, core.RiskHighRisk, level, "highest tier wins")
	assert.Contains(t, signals, core.SignalLinkMismatch)
	assert.Contains(t, signals, core.SignalSuspiciousLink)
	assert.Contains(t, signals, core.SignalKeywordMatch)
}

func TestAggregateDeduplicatesMismatchSignal(t *testing.T) {
	g := newTestAggregator()

	_, signals := g.Aggregate(AggregateInput{
		Links: []core.ExtractedLink{
			{TargetURL: "http://a.example/", HasMismatch: true},
			{TargetURL: "http://b.example/", HasMismatch: true},
		},
		Authentication: passVerdict(),
		AIContentScore: -1,
		Now:            time.Now(),
	})

	count := 0
	for _, s := range signals {
		if s == core.SignalLinkMismatch {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestAggregateIsPure(t *testing.T) {
	g := newTestAggregator()
	in := AggregateInput{
		Sender:         core.Sender{Address: "x@example.com", Domain: "example.com"},
		Keywords:       []string{"urgent", "password"},
		Links:          []core.ExtractedLink{{TargetURL: "https://bit.ly/x", IsShortener: true}},
		Authentication: passVerdict(),
		AIContentScore: -1,
		Now:            time.Unix(1700000000, 0),
	}

	level1, signals1 := g.Aggregate(in)
	level2, signals2 := g.Aggregate(in)

	assert.Equal(t, level1, level2)
	assert.Equal(t, signals1, signals2)
}
