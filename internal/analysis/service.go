package analysis

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
	"github.com/phishfinder/phishfinder/internal/utils"
)

// ServiceOptions holds pipeline tuning that comes from configuration.
type ServiceOptions struct {
	// SignalTimeout bounds each external signal (reputation,
	// authentication, content detection) individually; a timed-out signal
	// degrades to its fail-open default instead of blocking the message.
	SignalTimeout time.Duration
	// DetectorMaxBody caps how much body text is sent to the AI content
	// detector.
	DetectorMaxBody int
}

// Service runs the full per-message analysis pipeline. Everything except
// the sender-history store is pure or stateless; analyses of different
// messages are independent and can run concurrently.
type Service struct {
	sanitizer     *Sanitizer
	keywords      *KeywordScanner
	links         *LinkAnalyzer
	aggregator    *Aggregator
	reputation    core.ReputationClient
	authenticator core.Authenticator
	history       core.SenderHistoryRepository
	detector      core.ContentDetector
	logger        *zap.Logger
	opts          ServiceOptions
}

// NewService wires the pipeline. reputation, authenticator and detector
// may be nil when the corresponding signal is disabled; the pipeline then
// uses that signal's fail-open default.
func NewService(
	sanitizer *Sanitizer,
	keywords *KeywordScanner,
	links *LinkAnalyzer,
	aggregator *Aggregator,
	reputation core.ReputationClient,
	authenticator core.Authenticator,
	history core.SenderHistoryRepository,
	detector core.ContentDetector,
	logger *zap.Logger,
	opts ServiceOptions,
) *Service {
	if opts.SignalTimeout <= 0 {
		opts.SignalTimeout = 10 * time.Second
	}
	return &Service{
		sanitizer:     sanitizer,
		keywords:      keywords,
		links:         links,
		aggregator:    aggregator,
		reputation:    reputation,
		authenticator: authenticator,
		history:       history,
		detector:      detector,
		logger:        logger,
		opts:          opts,
	}
}

// AnalyzeEmail produces a fresh SecurityAnalysis for one message. It
// returns an error only for structurally invalid input or cancellation;
// upstream-service failures degrade per signal and still yield a verdict.
// A cancelled analysis records nothing to sender history.
func (s *Service) AnalyzeEmail(ctx context.Context, email *core.NormalizedEmail) (*core.SecurityAnalysis, error) {
	if email == nil || email.ID == "" || !email.HasBody() {
		return nil, core.ErrInvalidEmail
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sender := normalizeSender(email.Sender)

	body, isHTML := email.BodyPlainText, false
	if email.BodyHTML != "" {
		body, isHTML = email.BodyHTML, true
	}
	sanitized := s.sanitizer.Sanitize(body, isHTML)

	keywords := s.keywords.Scan(email.Subject + "\n" + email.Snippet + "\n" + sanitized.PlainText)
	links := s.links.Analyze(sanitized.PreservedHTML, sanitized.PlainText)

	matches := s.checkReputation(ctx, email.ID, links)
	verdict := s.authenticate(ctx, email)
	aiScore := s.detectGeneratedContent(ctx, email.ID, sanitized.PlainText)

	var profile *core.SenderProfile
	if s.history != nil && sender.Address != "" {
		p, err := s.history.GetProfile(ctx, sender.Address)
		if err != nil {
			s.logger.Warn("Sender history unavailable, scoring without it",
				zap.String("email_id", email.ID), zap.Error(err))
		} else {
			profile = p
		}
	}

	// Cancellation discards all partial signals; in particular the sender
	// profile must not be touched for a message that was never scored.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level, signals := s.aggregator.Aggregate(AggregateInput{
		Sender:            sender,
		Keywords:          keywords,
		Links:             links,
		ReputationMatches: matches,
		Authentication:    verdict,
		Profile:           profile,
		AIContentScore:    aiScore,
		Now:               time.Now(),
	})

	analysis := &core.SecurityAnalysis{
		EmailID:             email.ID,
		ProcessingID:        uuid.NewString(),
		RiskLevel:           level,
		MatchedKeywords:     keywords,
		Links:               links,
		ReputationMatches:   matches,
		Authentication:      verdict,
		ContributingSignals: signals,
		AIContentScore:      aiScore,
		SanitizerDegraded:   sanitized.Degraded,
		AnalyzedAt:          time.Now(),
	}

	if s.history != nil && sender.Address != "" {
		if err := s.history.RecordObservation(ctx, email.ID, sender.Address, analysis.Flagged()); err != nil {
			s.logger.Error("Failed to record sender observation",
				zap.String("email_id", email.ID),
				zap.String("sender", sender.Address),
				zap.Error(err))
		}
	}

	s.logger.Info("Email analyzed",
		zap.String("email_id", email.ID),
		zap.String("processing_id", analysis.ProcessingID),
		zap.String("risk_level", level.String()),
		zap.Int("links", len(links)),
		zap.Int("keywords", len(keywords)),
		zap.Bool("sanitizer_degraded", sanitized.Degraded))

	return analysis, nil
}

// checkReputation batches all of the message's unique URLs into a single
// lookup. Outages and timeouts fail open: no matches, verdict still
// produced.
func (s *Service) checkReputation(ctx context.Context, emailID string, links []core.ExtractedLink) []core.ReputationMatch {
	if s.reputation == nil || len(links) == 0 {
		return nil
	}
	urls := uniqueTargets(links)
	if len(urls) == 0 {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.SignalTimeout)
	defer cancel()

	matches, err := s.reputation.CheckURLs(sctx, urls)
	if err != nil {
		s.logger.Warn("Reputation lookup failed, continuing without it",
			zap.String("email_id", emailID), zap.Error(err))
		return nil
	}
	return matches
}

// authenticate evaluates SPF/DKIM/DMARC. Any failure degrades to the
// all-neutral verdict; authentication ambiguity reduces confidence but
// never blocks the message.
func (s *Service) authenticate(ctx context.Context, email *core.NormalizedEmail) core.AuthenticationVerdict {
	if s.authenticator == nil {
		return core.NeutralVerdict()
	}

	sctx, cancel := context.WithTimeout(ctx, s.opts.SignalTimeout)
	defer cancel()

	verdict, err := s.authenticator.Authenticate(sctx, email)
	if err != nil {
		s.logger.Warn("Authentication evaluation failed, degrading to neutral",
			zap.String("email_id", email.ID), zap.Error(err))
		return core.NeutralVerdict()
	}
	return verdict
}

// detectGeneratedContent asks the optional AI-content detector for a
// score. -1 means disabled or degraded.
func (s *Service) detectGeneratedContent(ctx context.Context, emailID, text string) float64 {
	if s.detector == nil || strings.TrimSpace(text) == "" {
		return -1
	}
	text = utils.TruncateUTF8(text, s.opts.DetectorMaxBody)

	sctx, cancel := context.WithTimeout(ctx, s.opts.SignalTimeout)
	defer cancel()

	score, err := s.detector.DetectGeneratedText(sctx, text)
	if err != nil {
		s.logger.Warn("AI content detection failed, continuing without it",
			zap.String("email_id", emailID), zap.Error(err))
		return -1
	}
	return score
}

// uniqueTargets returns the message's URLs with set semantics: each unique
// URL is checked once regardless of how often it occurs.
func uniqueTargets(links []core.ExtractedLink) []string {
	set := make(map[string]struct{}, len(links))
	for _, l := range links {
		if l.TargetURL != "" {
			set[l.TargetURL] = struct{}{}
		}
	}
	urls := make([]string, 0, len(set))
	for u := range set {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// normalizeSender fills in the derived domain when the ingest layer only
// supplied an address.
func normalizeSender(sender core.Sender) core.Sender {
	if sender.Domain == "" {
		if at := strings.LastIndex(sender.Address, "@"); at >= 0 {
			sender.Domain = strings.ToLower(sender.Address[at+1:])
		}
	}
	sender.Address = strings.ToLower(strings.TrimSpace(sender.Address))
	return sender
}
