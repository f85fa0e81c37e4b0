package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// SQLiteStore is a durable SenderHistoryRepository backed by SQLite.
// Counters are monotonic; nothing is ever deleted.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed initializes) the history database.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sender_profiles (
			address TEXT PRIMARY KEY,
			first_seen_at TIMESTAMP NOT NULL,
			total_emails_seen INTEGER NOT NULL DEFAULT 0,
			flagged_emails_seen INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
			message_id TEXT PRIMARY KEY,
			sender_address TEXT NOT NULL,
			processed_at TIMESTAMP NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize history schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// RecordObservation counts one processed message inside a transaction.
// The processed_messages primary key makes repeated calls with the same
// message id no-ops, and the transaction serializes concurrent updates to
// the same sender row.
func (s *SQLiteStore) RecordObservation(ctx context.Context, messageID, senderAddress string, flagged bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO processed_messages (message_id, sender_address, processed_at)
		VALUES (?, ?, ?)
	`, messageID, senderAddress, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already recorded for this message id.
		return tx.Commit()
	}

	flaggedDelta := 0
	if flagged {
		flaggedDelta = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sender_profiles (address, first_seen_at, total_emails_seen, flagged_emails_seen)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(address) DO UPDATE SET
			total_emails_seen = total_emails_seen + 1,
			flagged_emails_seen = flagged_emails_seen + excluded.flagged_emails_seen
	`, senderAddress, time.Now().Format(time.RFC3339), flaggedDelta)
	if err != nil {
		return fmt.Errorf("failed to update sender profile: %w", err)
	}

	return tx.Commit()
}

// GetProfile returns the sender's profile, or (nil, nil) when unseen.
func (s *SQLiteStore) GetProfile(ctx context.Context, senderAddress string) (*core.SenderProfile, error) {
	var firstSeen string
	profile := &core.SenderProfile{Address: senderAddress}

	err := s.db.QueryRowContext(ctx, `
		SELECT first_seen_at, total_emails_seen, flagged_emails_seen
		FROM sender_profiles
		WHERE address = ?
	`, senderAddress).Scan(&firstSeen, &profile.TotalEmailsSeen, &profile.FlaggedEmailsSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender profile: %w", err)
	}

	profile.FirstSeenAt, err = time.Parse(time.RFC3339, firstSeen)
	if err != nil {
		s.logger.Warn("Unparseable first_seen_at in history store",
			zap.String("sender", senderAddress), zap.Error(err))
	}
	return profile, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
