package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// MySQLStore is a durable SenderHistoryRepository backed by MySQL, for
// deployments where several analyzer instances share one history.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects to MySQL and initializes the schema.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sender_profiles (
			address VARCHAR(320) PRIMARY KEY,
			first_seen_at DATETIME NOT NULL,
			total_emails_seen BIGINT NOT NULL DEFAULT 0,
			flagged_emails_seen BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS processed_messages (
			message_id VARCHAR(255) PRIMARY KEY,
			sender_address VARCHAR(320) NOT NULL,
			processed_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize history schema: %w", err)
		}
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// RecordObservation counts one processed message; idempotent per message
// id via the processed_messages primary key.
func (s *MySQLStore) RecordObservation(ctx context.Context, messageID, senderAddress string, flagged bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT IGNORE INTO processed_messages (message_id, sender_address, processed_at)
		VALUES (?, ?, NOW())
	`, messageID, senderAddress)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tx.Commit()
	}

	flaggedDelta := 0
	if flagged {
		flaggedDelta = 1
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sender_profiles (address, first_seen_at, total_emails_seen, flagged_emails_seen)
		VALUES (?, NOW(), 1, ?)
		ON DUPLICATE KEY UPDATE
			total_emails_seen = total_emails_seen + 1,
			flagged_emails_seen = flagged_emails_seen + VALUES(flagged_emails_seen)
	`, senderAddress, flaggedDelta)
	if err != nil {
		return fmt.Errorf("failed to update sender profile: %w", err)
	}

	return tx.Commit()
}

// GetProfile returns the sender's profile, or (nil, nil) when unseen.
func (s *MySQLStore) GetProfile(ctx context.Context, senderAddress string) (*core.SenderProfile, error) {
	profile := &core.SenderProfile{Address: senderAddress}

	err := s.db.QueryRowContext(ctx, `
		SELECT first_seen_at, total_emails_seen, flagged_emails_seen
		FROM sender_profiles
		WHERE address = ?
	`, senderAddress).Scan(&profile.FirstSeenAt, &profile.TotalEmailsSeen, &profile.FlaggedEmailsSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sender profile: %w", err)
	}
	return profile, nil
}

// Close closes the underlying database.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
