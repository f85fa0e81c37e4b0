package history

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// MemoryStore is an in-memory SenderHistoryRepository. Profiles do not
// survive restarts; use the sqlite or mysql store when durability matters.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]*core.SenderProfile
	seen     map[string]struct{}
	logger   *zap.Logger
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*core.SenderProfile),
		seen:     make(map[string]struct{}),
		logger:   logger,
	}
}

// RecordObservation counts one processed message. The store-wide mutex
// serializes concurrent updates for the same sender, and the seen-message
// set makes the call idempotent per message id.
func (s *MemoryStore) RecordObservation(ctx context.Context, messageID, senderAddress string, flagged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.seen[messageID]; done {
		s.logger.Debug("Skipping already-recorded message",
			zap.String("message_id", messageID))
		return nil
	}
	s.seen[messageID] = struct{}{}

	profile, ok := s.profiles[senderAddress]
	if !ok {
		profile = &core.SenderProfile{
			Address:     senderAddress,
			FirstSeenAt: time.Now(),
		}
		s.profiles[senderAddress] = profile
	}
	profile.TotalEmailsSeen++
	if flagged {
		profile.FlaggedEmailsSeen++
	}
	return nil
}

// GetProfile returns a copy of the sender's profile, or (nil, nil) when
// the address has never been observed.
func (s *MemoryStore) GetProfile(ctx context.Context, senderAddress string) (*core.SenderProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[senderAddress]
	if !ok {
		return nil, nil
	}
	snapshot := *profile
	return &snapshot, nil
}
