// Package allowlist suppresses keyword-tier escalation for known
// bulk-mail and ESP domains whose legitimate traffic is saturated with
// lexicon terms ("verify your account", "action required", ...).
package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultDomains are senders whose marketing/transactional mail routinely
// trips the keyword heuristic.
var DefaultDomains = []string{
	"rocketmoney.com", "indeed.com", "linkedin.com",
	"salesforce.com", "mailchimp.com", "sendgrid.net",
}

// Checker answers whether a sender domain is on the allow-list.
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker builds a checker from the configured domains; nil or empty
// falls back to DefaultDomains.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if len(domains) == 0 {
		domains = DefaultDomains
	}
	normalized := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			normalized[d] = struct{}{}
		}
	}
	if logger != nil {
		logger.Info("Initialized sender allow-list", zap.Int("domains", len(normalized)))
	}
	return &Checker{domains: normalized, logger: logger}
}

// IsAllowed checks a sender domain (or full address) against the list.
// Subdomains of a listed domain are allowed too, matching how ESPs send
// from per-customer subdomains.
func (c *Checker) IsAllowed(sender string) bool {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if at := strings.LastIndex(sender, "@"); at >= 0 {
		sender = sender[at+1:]
	}
	if sender == "" {
		return false
	}
	if _, ok := c.domains[sender]; ok {
		return true
	}
	for d := range c.domains {
		if strings.HasSuffix(sender, "."+d) {
			return true
		}
	}
	return false
}
