// Package safebrowsing implements the reputation checker against the
// Google Safe Browsing v4 threatMatches endpoint.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/phishfinder/phishfinder/internal/core"
)

const defaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

// threatTypes is the fixed scope of recognized threats; platform scope is
// always ANY_PLATFORM.
var threatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

// Client queries Safe Browsing for URL reputation. One message's URLs are
// always coalesced into a single request.
type Client struct {
	apiKey        string
	clientID      string
	clientVersion string
	endpoint      string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient creates a Safe Browsing client. endpoint overrides the public
// API URL, which tests use to point at a local server.
func NewClient(apiKey, clientID, clientVersion, endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:        apiKey,
		clientID:      clientID,
		clientVersion: clientVersion,
		endpoint:      endpoint,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string      `json:"threatTypes"`
	PlatformTypes    []string      `json:"platformTypes"`
	ThreatEntryTypes []string      `json:"threatEntryTypes"`
	ThreatEntries    []threatEntry `json:"threatEntries"`
}

type threatEntry struct {
	URL string `json:"url"`
}

type findResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
		Threat     struct {
			URL string `json:"url"`
		} `json:"threat"`
	} `json:"matches"`
}

// CheckURLs batches the given URLs into one threatMatches lookup and
// returns the reported threats. An empty input short-circuits without a
// network call.
func (c *Client) CheckURLs(ctx context.Context, urls []string) ([]core.ReputationMatch, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	entries := make([]threatEntry, 0, len(urls))
	for _, u := range urls {
		entries = append(entries, threatEntry{URL: u})
	}

	payload, err := json.Marshal(findRequest{
		Client: clientInfo{ClientID: c.clientID, ClientVersion: c.clientVersion},
		ThreatInfo: threatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    entries,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode threat lookup: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build threat lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("threat lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("threat lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded findResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode threat lookup response: %w", err)
	}

	matches := make([]core.ReputationMatch, 0, len(decoded.Matches))
	for _, m := range decoded.Matches {
		matches = append(matches, core.ReputationMatch{
			URL:        m.Threat.URL,
			ThreatType: m.ThreatType,
		})
	}
	if len(matches) > 0 {
		c.logger.Info("Reputation service reported threats",
			zap.Int("matches", len(matches)),
			zap.Int("checked", len(urls)))
	}
	return matches, nil
}
