// Package model defines the entities shared across the scraping pipeline:
// transient candidate items and extraction results, and the persisted
// firm/platform/brand/acquisition records they resolve against.
package model

import "time"

// SourceChannel identifies which acquisition channel discovered an item.
type SourceChannel string

const (
	ChannelNews     SourceChannel = "news_search"
	ChannelSearch   SourceChannel = "web_search"
	ChannelRSS      SourceChannel = "rss"
	ChannelInbox    SourceChannel = "inbox_alerts"
	ChannelPlatform SourceChannel = "platform_brands_page"
)

// CandidateItem is a discovered but not-yet-processed URL. It lives only in
// memory for the duration of one adapter run.
type CandidateItem struct {
	URL          string
	Title        string
	Snippet      string
	SourceName   string
	Channel      SourceChannel
	DiscoveredAt time.Time
	PublishedAt  *time.Time
}

// Page is the normalized result of fetching a URL.
type Page struct {
	Title   string
	Text    string
	RawHTML string
}

// Relevance is the cheap classifier verdict for a title+snippet pair.
// The zero value is the fail-closed default: not relevant, zero confidence.
type Relevance struct {
	IsRelevant bool `json:"isRelevant"`
	Confidence int  `json:"confidence"` // 0-100
}

// ExtractedAcquisition is one acquisition record pulled out of article text.
// Only records with both names present and RelevanceScore at or above the
// configured commit threshold are resolved and stored.
type ExtractedAcquisition struct {
	FirmName       string `json:"peFirmName"`
	BrandName      string `json:"acquiredCompanyName"`
	Date           string `json:"acquisitionDate"` // YYYY-MM-DD or empty
	DealAmount     string `json:"dealAmount"`
	Location       string `json:"location"`
	RelevanceScore int    `json:"relevanceScore"` // 0-100
	Summary        string `json:"summary"`
}

// ExtractedArticle is the structured output of full-text extraction.
type ExtractedArticle struct {
	Title         string                 `json:"title"`
	Summary       string                 `json:"summary"`
	FirmMentions  []string               `json:"peFirmMentions"`
	BrandMentions []string               `json:"brandMentions"`
	IsRelevant    bool                   `json:"isRelevant"`
	Acquisitions  []ExtractedAcquisition `json:"acquisitions"`
}

// PortfolioBrand is one brand listed on a platform or firm "brands" page.
type PortfolioBrand struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Firm is a persisted private-equity firm.
type Firm struct {
	ID          string
	Name        string
	Slug        string
	Description string
}

// Platform is a PE-sponsored roll-up brand that itself owns acquired service
// brands. Its BrandSnapshot is history-of-one: the most recent full name list
// observed on its public brands page.
type Platform struct {
	ID            string
	Name          string
	Slug          string
	FirmID        string // empty when the sponsor is unknown
	BrandsPageURL string
	IsActive      bool
	Snapshot      *BrandSnapshot
	LastScrapedAt *time.Time
}

// BrandSnapshot is the last full brand-name list seen on a platform page.
type BrandSnapshot struct {
	Brands    []string  `json:"brands"`
	ScrapedAt time.Time `json:"scrapedAt"`
}

// Brand is a persisted acquired service company, keyed by slug.
type Brand struct {
	ID                 string
	Name               string
	Slug               string
	Location           string
	Website            string
	AcquisitionDate    *time.Time
	AcquisitionPrice   string
	FirmID             string // empty when unlinked
	PlatformID         string // empty when unlinked
	VerificationSource string
}

// Article is a persisted article, unique by URL.
type Article struct {
	ID            string
	Title         string
	URL           string
	Source        string
	Summary       string
	PublishedDate time.Time
	FirmID        string
	PlatformID    string
	BrandID       string
}

// Acquisition is a persisted deal record. Its logical key is the
// (FirmID, BrandID) pair; later mentions of the same pair are corroboration
// and are dropped rather than merged.
type Acquisition struct {
	ID          string
	Date        time.Time
	Amount      string
	DealType    string
	SourceURL   string
	SourceTitle string
	Notes       string
	FirmID      string
	PlatformID  string
	BrandID     string
}

// ScrapeSource is a configured acquisition channel endpoint (one RSS feed,
// the inbox, one platform brands page, ...). Its counters feed external
// alerting; the pipeline only ever resets or increments ConsecutiveFailures.
type ScrapeSource struct {
	ID                   string
	Name                 string
	URL                  string
	SourceType           SourceChannel
	ScrapeFrequencyHours int
	IsActive             bool
	PlatformID           string
	LastScrapedAt        *time.Time
	LastSuccessAt        *time.Time
	ConsecutiveFailures  int
}

// ScrapeLog is one append-only record per adapter invocation.
type ScrapeLog struct {
	ID           string
	SourceID     string
	StartedAt    time.Time
	CompletedAt  time.Time
	Status       string // "success" or "partial"
	RecordsFound int
	RecordsNew   int
	ErrorMessage string
}

// ChannelResult aggregates one adapter run.
type ChannelResult struct {
	Channel SourceChannel `json:"channel"`
	Found   int           `json:"found"`
	Stored  int           `json:"stored"`
	Errors  []string      `json:"errors,omitempty"`
}

// MonitorResult aggregates one platform-monitor run.
type MonitorResult struct {
	PlatformName  string   `json:"platformName"`
	BrandsFound   int      `json:"brandsFound"`
	BrandsAdded   int      `json:"brandsAdded"`
	BrandsRemoved int      `json:"brandsRemoved"`
	Errors        []string `json:"errors,omitempty"`
}

// RunReport is the aggregate result of an orchestrated run, returned to the
// caller that triggered it. Fire-and-forget: no streaming progress.
type RunReport struct {
	Channels []ChannelResult `json:"channels"`
	Monitor  []MonitorResult `json:"monitor,omitempty"`
	Duration time.Duration   `json:"duration"`
	Errors   []string        `json:"errors"`
}

// Found sums candidate counts across channels.
func (r *RunReport) Found() int {
	n := 0
	for _, c := range r.Channels {
		n += c.Found
	}
	return n
}

// Stored sums stored counts across channels.
func (r *RunReport) Stored() int {
	n := 0
	for _, c := range r.Channels {
		n += c.Stored
	}
	return n
}
