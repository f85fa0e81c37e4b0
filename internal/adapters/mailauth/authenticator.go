// Package mailauth derives a normalized SPF/DKIM/DMARC verdict for a
// message from its headers, with optional DNS-backed DKIM verification and
// DMARC policy discovery.
package mailauth

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-msgauth/authres"
	"github.com/emersion/go-msgauth/dkim"
	mdns "github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

// Options configures the authenticator.
type Options struct {
	// DNSLookups enables direct DKIM verification and DMARC policy
	// discovery. Without it only header-borne verdicts are used.
	DNSLookups bool
	// DNSServer is an explicit "host:port" resolver; empty uses the
	// system resolver.
	DNSServer string
	// PolicyCacheTTL bounds how long a discovered DMARC policy is reused.
	PolicyCacheTTL time.Duration
}

// Authenticator implements core.Authenticator. Evaluation never throws:
// anything that goes wrong degrades the affected mechanism to neutral.
type Authenticator struct {
	opts   Options
	client *mdns.Client
	cache  *policyCache
	logger *zap.Logger
}

// New creates an authenticator.
func New(opts Options, logger *zap.Logger) *Authenticator {
	if opts.PolicyCacheTTL <= 0 {
		opts.PolicyCacheTTL = time.Hour
	}
	return &Authenticator{
		opts:   opts,
		client: new(mdns.Client),
		cache:  newPolicyCache(opts.PolicyCacheTTL),
		logger: logger,
	}
}

var (
	originIPPattern = regexp.MustCompile(`\[(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\]`)
	heloPattern     = regexp.MustCompile(`(?i)helo=([^\s;)]+)`)
)

// envelope is the transport identity reconstructed from the topmost
// Received header, used for diagnostics.
type envelope struct {
	OriginIP string
	HELO     string
}

// Authenticate evaluates the message. Order of evidence: provider
// Authentication-Results headers, then a Received-SPF fallback, then (with
// DNS enabled) direct DKIM verification, and finally the sender domain's
// published DMARC policy. Mechanisms with no evidence stay "none";
// unrecognized results collapse to "neutral".
func (a *Authenticator) Authenticate(ctx context.Context, email *core.NormalizedEmail) (core.AuthenticationVerdict, error) {
	verdict := core.AuthenticationVerdict{
		SPF:         core.AuthNone,
		DKIM:        core.AuthNone,
		DMARC:       core.AuthNone,
		DMARCPolicy: core.PolicyAbsent,
	}

	for _, raw := range email.Headers("Authentication-Results") {
		a.applyAuthResults(raw, &verdict)
	}

	if verdict.SPF == core.AuthNone {
		if v := spfFromReceivedSPF(email.Header("Received-SPF")); v != core.AuthNone {
			verdict.SPF = v
		}
	}

	if verdict.DKIM == core.AuthNone && a.opts.DNSLookups {
		verdict.DKIM = a.verifyDKIM(ctx, email)
	}

	if a.opts.DNSLookups {
		domain := senderDomain(email.Sender)
		if domain != "" {
			verdict.DMARCPolicy = a.lookupDMARCPolicy(ctx, domain)
		}
	}

	env := extractEnvelope(email)
	a.logger.Debug("Authentication evaluated",
		zap.String("email_id", email.ID),
		zap.String("spf", string(verdict.SPF)),
		zap.String("dkim", string(verdict.DKIM)),
		zap.String("dmarc", string(verdict.DMARC)),
		zap.String("dmarc_policy", string(verdict.DMARCPolicy)),
		zap.String("origin_ip", env.OriginIP),
		zap.String("helo", env.HELO))

	return verdict, nil
}

// applyAuthResults folds one Authentication-Results header into the
// verdict. The first (topmost) verdict per mechanism wins; later relays'
// opinions do not override the receiving MTA. Unparseable headers are
// skipped, not fatal.
func (a *Authenticator) applyAuthResults(raw string, verdict *core.AuthenticationVerdict) {
	_, results, err := authres.Parse(raw)
	if err != nil {
		a.logger.Debug("Skipping unparseable Authentication-Results header",
			zap.Error(err))
		return
	}
	for _, r := range results {
		switch r := r.(type) {
		case *authres.SPFResult:
			if verdict.SPF == core.AuthNone {
				verdict.SPF = normalizeResult(r.Value)
			}
		case *authres.DKIMResult:
			if verdict.DKIM == core.AuthNone {
				verdict.DKIM = normalizeResult(r.Value)
			}
		case *authres.DMARCResult:
			if verdict.DMARC == core.AuthNone {
				verdict.DMARC = normalizeResult(r.Value)
			}
		}
	}
}

// normalizeResult collapses the RFC 8601 result space to the four values
// the aggregator understands. Only an outright failure maps to fail; the
// ambiguous results (softfail, temperror, permerror, policy) all become
// neutral so transient DNS trouble cannot produce a high-risk verdict.
func normalizeResult(v authres.ResultValue) core.AuthResult {
	switch strings.ToLower(string(v)) {
	case "pass":
		return core.AuthPass
	case "fail", "hardfail":
		return core.AuthFail
	case "none", "":
		return core.AuthNone
	default:
		return core.AuthNeutral
	}
}

// spfFromReceivedSPF interprets the legacy Received-SPF header, whose
// value starts with the bare result word.
func spfFromReceivedSPF(value string) core.AuthResult {
	value = strings.TrimSpace(value)
	if value == "" {
		return core.AuthNone
	}
	word := value
	if idx := strings.IndexAny(value, " \t("); idx > 0 {
		word = value[:idx]
	}
	return normalizeResult(authres.ResultValue(strings.ToLower(word)))
}

// verifyDKIM verifies signatures over the RFC 822 reconstruction of the
// message. Bodies arrive re-decoded from the provider, so a failed body
// hash proves nothing; only a cryptographic pass is trusted, everything
// else degrades to neutral (or none when no signature exists at all).
func (a *Authenticator) verifyDKIM(ctx context.Context, email *core.NormalizedEmail) core.AuthResult {
	if email.Header("DKIM-Signature") == "" {
		return core.AuthNone
	}

	raw := reconstructMessage(email)
	verifications, err := dkim.VerifyWithOptions(strings.NewReader(raw), &dkim.VerifyOptions{
		LookupTXT: func(domain string) ([]string, error) {
			return a.lookupTXT(ctx, domain)
		},
	})
	if err != nil {
		a.logger.Debug("DKIM verification errored, treating as neutral",
			zap.String("email_id", email.ID), zap.Error(err))
		return core.AuthNeutral
	}
	if len(verifications) == 0 {
		return core.AuthNone
	}
	for _, v := range verifications {
		if v.Err == nil {
			return core.AuthPass
		}
	}
	return core.AuthNeutral
}

// lookupDMARCPolicy fetches and classifies _dmarc.<domain>, with a TTL
// cache in front of the resolver. Any failure yields "absent".
func (a *Authenticator) lookupDMARCPolicy(ctx context.Context, domain string) core.DMARCPolicy {
	if policy, ok := a.cache.get(domain); ok {
		return policy
	}

	records, err := a.lookupTXT(ctx, "_dmarc."+domain)
	policy := core.PolicyAbsent
	if err != nil {
		a.logger.Debug("DMARC policy lookup failed",
			zap.String("domain", domain), zap.Error(err))
	} else {
		for _, record := range records {
			if p, ok := parseDMARCRecord(record); ok {
				policy = p
				break
			}
		}
	}

	a.cache.put(domain, policy)
	return policy
}

// parseDMARCRecord classifies the p= tag of a DMARC TXT record.
func parseDMARCRecord(record string) (core.DMARCPolicy, bool) {
	if !strings.HasPrefix(strings.TrimSpace(record), "v=DMARC1") {
		return core.PolicyAbsent, false
	}
	for _, tag := range strings.Split(record, ";") {
		tag = strings.TrimSpace(tag)
		value, found := strings.CutPrefix(tag, "p=")
		if !found {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "quarantine":
			return core.PolicyQuarantine, true
		case "reject":
			return core.PolicyReject, true
		default:
			return core.PolicyNone, true
		}
	}
	return core.PolicyNone, true
}

// lookupTXT resolves TXT records through the configured server, or the
// system resolver when none is set.
func (a *Authenticator) lookupTXT(ctx context.Context, name string) ([]string, error) {
	if a.opts.DNSServer == "" {
		return net.DefaultResolver.LookupTXT(ctx, name)
	}

	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(name), mdns.TypeTXT)
	resp, _, err := a.client.ExchangeContext(ctx, m, a.opts.DNSServer)
	if err != nil {
		return nil, fmt.Errorf("TXT query for %s failed: %w", name, err)
	}
	if resp.Rcode != mdns.RcodeSuccess {
		return nil, fmt.Errorf("TXT query for %s returned rcode %d", name, resp.Rcode)
	}

	var records []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*mdns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records, nil
}

// extractEnvelope pulls the originating IP and HELO identity out of the
// topmost Received header.
func extractEnvelope(email *core.NormalizedEmail) envelope {
	received := email.Header("Received")
	if received == "" {
		return envelope{}
	}
	env := envelope{}
	if m := originIPPattern.FindStringSubmatch(received); m != nil {
		env.OriginIP = m[1]
	}
	if m := heloPattern.FindStringSubmatch(received); m != nil {
		env.HELO = m[1]
	}
	return env
}

// senderDomain resolves the domain DMARC policy is published under.
func senderDomain(sender core.Sender) string {
	if sender.Domain != "" {
		return strings.ToLower(sender.Domain)
	}
	if at := strings.LastIndex(sender.Address, "@"); at >= 0 {
		return strings.ToLower(sender.Address[at+1:])
	}
	return ""
}

// reconstructMessage rebuilds an RFC 822 message (headers, blank line,
// body) for signature verification.
func reconstructMessage(email *core.NormalizedEmail) string {
	var b strings.Builder
	for _, h := range email.RawHeaders {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	if email.BodyHTML != "" {
		b.WriteString(email.BodyHTML)
	} else {
		b.WriteString(email.BodyPlainText)
	}
	return b.String()
}
