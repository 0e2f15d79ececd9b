package store

import (
	"context"
	"time"

	"github.com/pmackar/aireshark/internal/model"
)

// ArticleFilter specifies criteria for listing articles.
type ArticleFilter struct {
	FirmID     string `json:"firm_id,omitempty"`
	PlatformID string `json:"platform_id,omitempty"`
	BrandID    string `json:"brand_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// AcquisitionRow is an acquisition joined with the names of the entities it
// links, for export and API listing.
type AcquisitionRow struct {
	model.Acquisition
	FirmName     string `json:"firmName"`
	PlatformName string `json:"platformName,omitempty"`
	BrandName    string `json:"brandName"`
}

// Store defines the persistence interface for the scraping pipeline.
//
// Lookup methods return (nil, nil) when no row matches; callers treat a nil
// record as "not found" rather than an error.
type Store interface {
	// Articles
	GetArticleByURL(ctx context.Context, url string) (*model.Article, error)
	CreateArticle(ctx context.Context, article *model.Article) error
	ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error)

	// Firms
	CreateFirm(ctx context.Context, firm *model.Firm) error
	ListFirms(ctx context.Context) ([]model.Firm, error)
	FindFirmByName(ctx context.Context, name string) (*model.Firm, error)

	// Platforms
	CreatePlatform(ctx context.Context, platform *model.Platform) error
	ListActivePlatforms(ctx context.Context) ([]model.Platform, error)
	FindPlatformByName(ctx context.Context, name string) (*model.Platform, error)
	SaveBrandSnapshot(ctx context.Context, platformID string, snap model.BrandSnapshot) error

	// Brands
	GetBrandBySlug(ctx context.Context, slug string) (*model.Brand, error)
	CreateBrand(ctx context.Context, brand *model.Brand) error
	LinkBrand(ctx context.Context, brandID, firmID, platformID string) error

	// Acquisitions
	GetAcquisitionByFirmBrand(ctx context.Context, firmID, brandID string) (*model.Acquisition, error)
	CreateAcquisition(ctx context.Context, acq *model.Acquisition) error
	ListAcquisitionRows(ctx context.Context, limit int) ([]AcquisitionRow, error)

	// Scrape sources and logs
	FindOrCreateSource(ctx context.Context, name, url string, sourceType model.SourceChannel) (*model.ScrapeSource, error)
	RecordSourceRun(ctx context.Context, sourceID string, success bool, at time.Time) error
	CreateScrapeLog(ctx context.Context, entry *model.ScrapeLog) error
	ListScrapeLogs(ctx context.Context, limit int) ([]model.ScrapeLog, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
