// Package source contains the ingest surfaces. The SMTP source accepts
// messages over SMTP, normalizes them and runs them through the analysis
// pool. It is an analysis sink only; nothing is relayed onward.
package source

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/analysis"
	"github.com/phishfinder/phishfinder/internal/core"
	"github.com/phishfinder/phishfinder/internal/utils"
)

const snippetLength = 200

// SMTPSource is an SMTP server that analyzes every message handed to it.
type SMTPSource struct {
	server *smtp.Server
	pool   *analysis.Pool
	logger *zap.Logger
}

// NewSMTPSource creates an SMTP ingest source listening on addr.
func NewSMTPSource(addr, domain string, maxMessageBytes int64, pool *analysis.Pool, logger *zap.Logger) *SMTPSource {
	src := &SMTPSource{pool: pool, logger: logger}

	server := smtp.NewServer(src)
	server.Addr = addr
	server.Domain = domain
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = maxMessageBytes
	server.MaxRecipients = 50
	src.server = server

	return src
}

// NewSession implements smtp.Backend.
func (s *SMTPSource) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &session{source: s}, nil
}

// Start serves SMTP until Stop is called.
func (s *SMTPSource) Start() error {
	s.logger.Info("SMTP source listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop closes the listener and waits for in-flight analyses.
func (s *SMTPSource) Stop() error {
	err := s.server.Close()
	s.pool.Wait()
	return err
}

type session struct {
	source *SMTPSource
	from   string
}

func (sess *session) Mail(from string, opts *smtp.MailOptions) error {
	sess.from = from
	return nil
}

func (sess *session) Rcpt(to string, opts *smtp.RcptOptions) error {
	return nil
}

// Data receives the message body, normalizes it and analyzes it. A
// message that cannot even be parsed is rejected; an analysis failure is
// not, since the sender did nothing wrong.
func (sess *session) Data(r io.Reader) error {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return fmt.Errorf("failed to parse message: %w", err)
	}

	email := NormalizeEnvelope(env)
	if email.Sender.Address == "" && sess.from != "" {
		email.Sender = senderFromAddress(sess.from, "")
	}

	result, err := sess.source.pool.Process(context.Background(), email)
	if err != nil {
		sess.source.logger.Error("Analysis failed",
			zap.String("email_id", email.ID), zap.Error(err))
		return nil
	}

	sess.source.logger.Info("Message analyzed",
		zap.String("email_id", result.EmailID),
		zap.String("processing_id", result.ProcessingID),
		zap.String("risk_level", result.RiskLevel.String()),
		zap.String("sender", email.Sender.Address))
	return nil
}

func (sess *session) Reset() {
	sess.from = ""
}

func (sess *session) Logout() error {
	return nil
}

// NormalizeEnvelope converts a parsed MIME envelope into the canonical
// analysis input. Missing Message-Id gets a generated one so history
// idempotency still has a key.
func NormalizeEnvelope(env *enmime.Envelope) *core.NormalizedEmail {
	email := &core.NormalizedEmail{
		ID:            strings.Trim(env.GetHeader("Message-Id"), "<> "),
		Subject:       env.GetHeader("Subject"),
		BodyPlainText: env.Text,
		BodyHTML:      env.HTML,
	}
	if email.ID == "" {
		email.ID = uuid.NewString()
	}

	if addr, err := mail.ParseAddress(env.GetHeader("From")); err == nil {
		email.Sender = senderFromAddress(addr.Address, addr.Name)
	} else {
		email.Sender = senderFromAddress(env.GetHeader("From"), "")
	}

	if sentAt, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		email.SentAt = sentAt
	}

	email.Snippet = utils.TruncateUTF8(strings.TrimSpace(env.Text), snippetLength)

	for name, values := range env.Root.Header {
		for _, value := range values {
			email.RawHeaders = append(email.RawHeaders, core.Header{Name: name, Value: value})
		}
	}

	return email
}

func senderFromAddress(address, displayName string) core.Sender {
	sender := core.Sender{
		Address:     strings.ToLower(strings.TrimSpace(address)),
		DisplayName: displayName,
	}
	if at := strings.LastIndex(sender.Address, "@"); at >= 0 {
		sender.Domain = sender.Address[at+1:]
	}
	return sender
}
