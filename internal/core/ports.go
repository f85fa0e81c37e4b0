package core

import (
	"context"
)

// ReputationClient checks URLs against an external threat-intelligence
// service. Implementations must batch the whole slice into one request.
type ReputationClient interface {
	// CheckURLs returns the subset of urls the service reports as threats.
	// The slice is already deduplicated by the caller.
	CheckURLs(ctx context.Context, urls []string) ([]ReputationMatch, error)
}

// Authenticator evaluates sender authentication for a message.
// Implementations degrade internally and should rarely return an error;
// the caller treats any error as an all-neutral verdict.
type Authenticator interface {
	Authenticate(ctx context.Context, email *NormalizedEmail) (AuthenticationVerdict, error)
}

// SenderHistoryRepository is the only mutable shared state in the engine.
type SenderHistoryRepository interface {
	// RecordObservation counts one processed message for the sender.
	// A given messageID increments counters at most once; repeated calls
	// with the same id are no-ops.
	RecordObservation(ctx context.Context, messageID, senderAddress string, flagged bool) error

	// GetProfile returns the sender's profile, or (nil, nil) when the
	// address has never been observed.
	GetProfile(ctx context.Context, senderAddress string) (*SenderProfile, error)
}

// ContentDetector scores how likely a body text is machine-generated.
// Scores are in [0,1]; higher means more likely generated.
type ContentDetector interface {
	DetectGeneratedText(ctx context.Context, text string) (float64, error)
}
