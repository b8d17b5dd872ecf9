package models

import "time"

// Listing is one observed rental listing. Optional attributes are nil when
// the page did not yield a parseable value.
//
// A later observation of the same listing is a new value carrying the same
// Fingerprint.
type Listing struct {
	Fingerprint string
	SiteName    string
	Title       string
	URL         string
	Price       *float64
	Bedrooms    *int
	Bathrooms   *float64
	Sqft        *int
	Available   bool
	MoveInDate  *time.Time
	ObservedAt  time.Time
}

// NewListing builds a Listing and derives its fingerprint from site, title and URL.
func NewListing(site, title, url string, observedAt time.Time) Listing {
	return Listing{
		Fingerprint: Fingerprint(site, title, url),
		SiteName:    site,
		Title:       title,
		URL:         url,
		Available:   true,
		ObservedAt:  observedAt,
	}
}

// SiteResult is the outcome of one site's scrape pass.
type SiteResult struct {
	SiteName string
	Scraped  int
	New      []Listing
	Removed  []Listing
	Err      error
}

// RunResult aggregates one scrape run over a set of sites. Sites whose
// extraction failed appear in Sites with Err set and contribute nothing to
// New or Removed.
type RunResult struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Sites      []SiteResult
	New        []Listing
	Removed    []Listing
}

// Failed returns the site results that ended in an error.
func (r *RunResult) Failed() []SiteResult {
	var failed []SiteResult
	for _, s := range r.Sites {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

// RunReport holds the computed summary over a run's output.
type RunReport struct {
	SitesScraped  int
	SitesFailed   int
	NewListings   int
	Removed       int
	TotalTracked  int
	AveragePrice  float64
	MinPrice      float64
	MaxPrice      float64
	Cheapest      *Listing
	NewBySite     map[string]int
	RemovedBySite map[string]int
	Duration      time.Duration
}
