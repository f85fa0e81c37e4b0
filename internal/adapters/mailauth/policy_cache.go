package mailauth

import (
	"sync"
	"time"

	"github.com/phishfinder/phishfinder/internal/core"
)

// policyCache memoizes discovered DMARC policies per domain with a TTL, so
// a burst of mail from one domain costs a single DNS round trip.
type policyCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]policyEntry
}

type policyEntry struct {
	policy  core.DMARCPolicy
	expires time.Time
}

func newPolicyCache(ttl time.Duration) *policyCache {
	return &policyCache{
		ttl:     ttl,
		entries: make(map[string]policyEntry),
	}
}

func (c *policyCache) get(domain string) (core.DMARCPolicy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[domain]
	if !ok || time.Now().After(entry.expires) {
		delete(c.entries, domain)
		return core.PolicyAbsent, false
	}
	return entry.policy, true
}

func (c *policyCache) put(domain string, policy core.DMARCPolicy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[domain] = policyEntry{
		policy:  policy,
		expires: time.Now().Add(c.ttl),
	}
}
