package mailauth

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-msgauth/authres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

func headerOnlyAuthenticator() *Authenticator {
	return New(Options{DNSLookups: false}, zap.NewNop())
}

func emailWithHeaders(headers ...core.Header) *core.NormalizedEmail {
	return &core.NormalizedEmail{
		ID:            "m1",
		Sender:        core.Sender{Address: "alice@example.com", Domain: "example.com"},
		BodyPlainText: "hello",
		RawHeaders:    headers,
	}
}

func TestAuthenticateFromAuthResultsHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   core.AuthenticationVerdict
	}{
		{
			name:   "all mechanisms pass",
			header: "mx.example.net; spf=pass smtp.mailfrom=example.com; dkim=pass header.d=example.com; dmarc=pass header.from=example.com",
			want: core.AuthenticationVerdict{
				SPF: core.AuthPass, DKIM: core.AuthPass, DMARC: core.AuthPass,
				DMARCPolicy: core.PolicyAbsent,
			},
		},
		{
			name:   "outright failures map to fail",
			header: "mx.example.net; spf=fail smtp.mailfrom=example.com; dkim=fail header.d=example.com",
			want: core.AuthenticationVerdict{
				SPF: core.AuthFail, DKIM: core.AuthFail, DMARC: core.AuthNone,
				DMARCPolicy: core.PolicyAbsent,
			},
		},
		{
			name:   "ambiguous results collapse to neutral",
			header: "mx.example.net; spf=softfail smtp.mailfrom=example.com; dkim=temperror header.d=example.com; dmarc=permerror header.from=example.com",
			want: core.AuthenticationVerdict{
				SPF: core.AuthNeutral, DKIM: core.AuthNeutral, DMARC: core.AuthNeutral,
				DMARCPolicy: core.PolicyAbsent,
			},
		},
		{
			name:   "explicit none stays none",
			header: "mx.example.net; spf=none smtp.mailfrom=example.com",
			want: core.AuthenticationVerdict{
				SPF: core.AuthNone, DKIM: core.AuthNone, DMARC: core.AuthNone,
				DMARCPolicy: core.PolicyAbsent,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := headerOnlyAuthenticator()
			email := emailWithHeaders(core.Header{Name: "Authentication-Results", Value: tt.header})

			verdict, err := a.Authenticate(context.Background(), email)

			require.NoError(t, err)
			assert.Equal(t, tt.want, verdict)
		})
	}
}

func TestAuthenticateTopmostHeaderWins(t *testing.T) {
	a := headerOnlyAuthenticator()
	email := emailWithHeaders(
		core.Header{Name: "Authentication-Results", Value: "mx.example.net; spf=pass smtp.mailfrom=example.com"},
		core.Header{Name: "Authentication-Results", Value: "relay.example.org; spf=fail smtp.mailfrom=example.com"},
	)

	verdict, err := a.Authenticate(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, core.AuthPass, verdict.SPF, "the receiving MTA's verdict is authoritative")
}

func TestAuthenticateNoEvidenceIsAbsent(t *testing.T) {
	a := headerOnlyAuthenticator()

	verdict, err := a.Authenticate(context.Background(), emailWithHeaders())

	require.NoError(t, err)
	assert.True(t, verdict.Absent())
	assert.False(t, verdict.HardFail())
}

func TestAuthenticateReceivedSPFFallback(t *testing.T) {
	a := headerOnlyAuthenticator()
	email := emailWithHeaders(core.Header{
		Name:  "Received-SPF",
		Value: "Pass (mailfrom) identity=mailfrom; client-ip=203.0.113.5",
	})

	verdict, err := a.Authenticate(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, core.AuthPass, verdict.SPF)
}

func TestAuthenticateUnparseableHeaderIsSkipped(t *testing.T) {
	a := headerOnlyAuthenticator()
	email := emailWithHeaders(
		core.Header{Name: "Authentication-Results", Value: ";;; total garbage ;;;"},
		core.Header{Name: "Authentication-Results", Value: "mx.example.net; spf=pass smtp.mailfrom=example.com"},
	)

	verdict, err := a.Authenticate(context.Background(), email)

	require.NoError(t, err)
	assert.Equal(t, core.AuthPass, verdict.SPF)
}

func TestNormalizeResult(t *testing.T) {
	tests := []struct {
		in   string
		want core.AuthResult
	}{
		{in: "pass", want: core.AuthPass},
		{in: "PASS", want: core.AuthPass},
		{in: "fail", want: core.AuthFail},
		{in: "hardfail", want: core.AuthFail},
		{in: "none", want: core.AuthNone},
		{in: "", want: core.AuthNone},
		{in: "softfail", want: core.AuthNeutral},
		{in: "neutral", want: core.AuthNeutral},
		{in: "temperror", want: core.AuthNeutral},
		{in: "policy", want: core.AuthNeutral},
		{in: "something-new", want: core.AuthNeutral},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeResult(authres.ResultValue(tt.in)), tt.in)
	}
}

func TestParseDMARCRecord(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   core.DMARCPolicy
		wantOK bool
	}{
		{
			name:   "reject policy",
			record: "v=DMARC1; p=reject; rua=mailto:dmarc@example.com",
			want:   core.PolicyReject,
			wantOK: true,
		},
		{
			name:   "quarantine policy",
			record: "v=DMARC1;p=quarantine",
			want:   core.PolicyQuarantine,
			wantOK: true,
		},
		{
			name:   "none policy",
			record: "v=DMARC1; p=none; sp=reject",
			want:   core.PolicyNone,
			wantOK: true,
		},
		{
			name:   "missing p tag defaults to none",
			record: "v=DMARC1; rua=mailto:dmarc@example.com",
			want:   core.PolicyNone,
			wantOK: true,
		},
		{
			name:   "not a DMARC record",
			record: "v=spf1 include:_spf.example.com ~all",
			want:   core.PolicyAbsent,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDMARCRecord(tt.record)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSPFFromReceivedSPF(t *testing.T) {
	tests := []struct {
		in   string
		want core.AuthResult
	}{
		{in: "Pass (mailfrom) identity=mailfrom", want: core.AuthPass},
		{in: "fail (example.net: domain does not designate sender)", want: core.AuthFail},
		{in: "SoftFail", want: core.AuthNeutral},
		{in: "", want: core.AuthNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, spfFromReceivedSPF(tt.in), tt.in)
	}
}

func TestExtractEnvelope(t *testing.T) {
	email := emailWithHeaders(core.Header{
		Name:  "Received",
		Value: "from mail.example.com (mail.example.com [203.0.113.5]) by mx.local with ESMTP id abc; helo=mail.example.com; Mon, 2 Jan 2006 15:04:05 -0700",
	})

	env := extractEnvelope(email)

	assert.Equal(t, "203.0.113.5", env.OriginIP)
	assert.Equal(t, "mail.example.com", env.HELO)
}

func TestExtractEnvelopeMissingHeader(t *testing.T) {
	env := extractEnvelope(emailWithHeaders())

	assert.Empty(t, env.OriginIP)
	assert.Empty(t, env.HELO)
}

func TestPolicyCache(t *testing.T) {
	cache := newPolicyCache(time.Minute)

	_, ok := cache.get("example.com")
	assert.False(t, ok)

	cache.put("example.com", core.PolicyReject)
	got, ok := cache.get("example.com")
	assert.True(t, ok)
	assert.Equal(t, core.PolicyReject, got)
}
