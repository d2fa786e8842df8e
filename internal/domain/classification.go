package domain

import "time"

// Link is a core entity describing a bookmarked URL fetched from LinkAce.
type Link struct {
	ID          int
	URL         string
	Title       string
	Description string
	Lists       []int
}

// Category is one classification list together with the reference links
// used as inference context. Mutated only by a cache refresh.
type Category struct {
	ListID  int
	Links   []Link
	Domains []string
}

// MaxSampleDomains bounds the per-category domain summary used in diagnostics.
const MaxSampleDomains = 10

// Candidate is a single (list, confidence) judgement produced by the
// inference backend for a URL.
type Candidate struct {
	ListID     int     `json:"list_id"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Decision is the ordered set of candidates at or above the configured
// threshold, sorted by descending confidence with ties broken by
// ascending list id.
type Decision struct {
	URL             string
	NormalizedURL   string
	Classifications []Candidate
	Elapsed         time.Duration
}

// Top returns the highest-ranked candidate, or false when the set is empty.
func (d Decision) Top() (Candidate, bool) {
	if len(d.Classifications) == 0 {
		return Candidate{}, false
	}
	return d.Classifications[0], true
}

// CacheStatus enumerates reference-cache freshness states.
type CacheStatus string

const (
	CacheEmpty CacheStatus = "empty"
	CacheFresh CacheStatus = "fresh"
	CacheStale CacheStatus = "stale"
)

// CacheInfo is the cache view exposed by the status endpoint.
type CacheInfo struct {
	Count      int         `json:"count"`
	TotalLinks int         `json:"total_links"`
	Status     CacheStatus `json:"cache_status"`
}
