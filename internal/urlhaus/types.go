// Package urlhaus queries the abuse.ch URLhaus threat-intel API.
//
// Lookups never return errors to the verdict path: every failure is folded into
// a Status on the result and IsMalicious stays false.
package urlhaus

import (
	"time"
)

// Status describes how a lookup ended.
type Status string

const (
	StatusNotConfigured   Status = "not_configured"
	StatusDetected        Status = "detected"
	StatusClean           Status = "clean"
	StatusAPIError        Status = "api_error"
	StatusAuthError       Status = "auth_error"
	StatusRateLimited     Status = "rate_limited"
	StatusHTTPError       Status = "http_error"
	StatusTimeout         Status = "timeout"
	StatusConnectionError Status = "connection_error"
	StatusMalformed       Status = "malformed"
	StatusCancelled       Status = "cancelled"
)

// Cacheable reports whether a host result may be served from cache.
func (s Status) Cacheable() bool {
	return s == StatusDetected || s == StatusClean
}

// URLResult is the normalized answer to a URL lookup.
type URLResult struct {
	IsMalicious bool              `json:"is_malicious"`
	Confidence  float64           `json:"confidence"`
	ThreatType  string            `json:"threat_type,omitempty"`
	Status      Status            `json:"status"`
	Detail      string            `json:"detail"`
	URLStatus   string            `json:"url_status,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	DateAdded   time.Time         `json:"date_added,omitzero"`
	Blacklists  map[string]string `json:"blacklists,omitempty"`
	Reference   string            `json:"reference,omitempty"`
}

// HostResult is the normalized answer to a host lookup.
type HostResult struct {
	Host        string            `json:"host"`
	IsMalicious bool              `json:"is_malicious"`
	Confidence  float64           `json:"confidence"`
	ThreatType  string            `json:"threat_type,omitempty"`
	Status      Status            `json:"status"`
	Detail      string            `json:"detail"`
	URLCount    int               `json:"url_count"`
	Blacklists  map[string]string `json:"blacklists,omitempty"`
	FirstSeen   time.Time         `json:"first_seen,omitzero"`
	Reference   string            `json:"reference,omitempty"`
}

// URLEntry is one URL listed by the recent-URLs or tag endpoints.
type URLEntry struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Host      string    `json:"host,omitempty"`
	URLStatus string    `json:"url_status"`
	Threat    string    `json:"threat"`
	Tags      []string  `json:"tags,omitempty"`
	DateAdded time.Time `json:"date_added,omitzero"`
	Reporter  string    `json:"reporter,omitempty"`
	Reference string    `json:"reference,omitempty"`
}

// Payload is one malware sample listed by the recent-payloads endpoint.
type Payload struct {
	MD5       string    `json:"md5"`
	SHA256    string    `json:"sha256"`
	FileType  string    `json:"file_type"`
	FileSize  int64     `json:"file_size"`
	Signature string    `json:"signature,omitempty"`
	FirstSeen time.Time `json:"first_seen,omitzero"`
}

// TagResult lists the URLs carrying a tag.
type TagResult struct {
	Tag       string     `json:"tag"`
	Found     bool       `json:"found"`
	URLCount  int        `json:"url_count"`
	URLs      []URLEntry `json:"urls,omitempty"`
	FirstSeen time.Time  `json:"first_seen,omitzero"`
	LastSeen  time.Time  `json:"last_seen,omitzero"`
}

// Count is a ranked name/occurrence pair.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SummaryStats are the totals behind an intelligence summary.
type SummaryStats struct {
	RecentURLs     int `json:"recent_urls"`
	RecentPayloads int `json:"recent_payloads"`
	TotalThreats   int `json:"total_threats"`
	UniqueDomains  int `json:"unique_domains"`
	UniqueTags     int `json:"unique_tags"`
}

// Summary aggregates the recent threat landscape.
type Summary struct {
	Threats    []Count      `json:"threats"`
	TopDomains []Count      `json:"top_domains"`
	TopTags    []Count      `json:"top_tags"`
	FileTypes  []Count      `json:"file_types"`
	Signatures []Count      `json:"signatures"`
	Stats      SummaryStats `json:"stats"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Config holds configuration for the URLhaus client.
type Config struct {
	AuthKey      string        `json:"-"`
	BaseURL      string        `json:"base_url"`
	Timeout      time.Duration `json:"timeout"`
	HostCacheTTL time.Duration `json:"host_cache_ttl"`
}

// DefaultConfig returns a Config with the public API endpoint and defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://urlhaus-api.abuse.ch/v1",
		Timeout:      15 * time.Second,
		HostCacheTTL: 10 * time.Minute,
	}
}
