package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestIsAllowed(t *testing.T) {
	checker := NewChecker(nil, zap.NewNop())

	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{name: "listed domain", sender: "linkedin.com", want: true},
		{name: "full address on listed domain", sender: "jobs-noreply@linkedin.com", want: true},
		{name: "subdomain of listed domain", sender: "alerts@mail.linkedin.com", want: true},
		{name: "case and whitespace insensitive", sender: "  LinkedIn.COM ", want: true},
		{name: "unlisted domain", sender: "alice@example.com", want: false},
		{name: "listed domain as a suffix trick", sender: "evil-linkedin.com", want: false},
		{name: "empty sender", sender: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checker.IsAllowed(tt.sender))
		})
	}
}

func TestIsAllowedCustomDomains(t *testing.T) {
	checker := NewChecker([]string{"Corp.Example"}, zap.NewNop())

	assert.True(t, checker.IsAllowed("it@corp.example"))
	assert.False(t, checker.IsAllowed("jobs@linkedin.com"), "custom list replaces the defaults")
}
