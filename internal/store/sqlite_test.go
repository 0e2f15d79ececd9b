package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmackar/aireshark/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedFirm(t *testing.T, st *SQLiteStore, name string) *model.Firm {
	t.Helper()
	firm := &model.Firm{Name: name, Slug: model.Slugify(name)}
	require.NoError(t, st.CreateFirm(context.Background(), firm))
	return firm
}

func seedPlatform(t *testing.T, st *SQLiteStore, name, firmID string) *model.Platform {
	t.Helper()
	platform := &model.Platform{
		Name:          name,
		Slug:          model.Slugify(name),
		FirmID:        firmID,
		BrandsPageURL: "https://example.com/brands",
		IsActive:      true,
	}
	require.NoError(t, st.CreatePlatform(context.Background(), platform))
	return platform
}

// --- Articles ---

func TestSQLite_Article_CreateAndGetByURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	article := &model.Article{
		Title:         "Apex Acquires ABC Heating",
		URL:           "https://achrnews.com/apex-abc",
		Source:        "ACHR News",
		Summary:       "Platform deal",
		PublishedDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.CreateArticle(ctx, article))
	assert.NotEmpty(t, article.ID)

	got, err := st.GetArticleByURL(ctx, "https://achrnews.com/apex-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, article.ID, got.ID)
	assert.Equal(t, "ACHR News", got.Source)
}

func TestSQLite_Article_GetByURL_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetArticleByURL(context.Background(), "https://nowhere.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Article_URLUnique(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := &model.Article{Title: "First", URL: "https://dup.com/a", PublishedDate: time.Now().UTC()}
	require.NoError(t, st.CreateArticle(ctx, a))

	b := &model.Article{Title: "Second", URL: "https://dup.com/a", PublishedDate: time.Now().UTC()}
	assert.Error(t, st.CreateArticle(ctx, b))
}

func TestSQLite_Article_ListByFirm(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Alpine Investors")
	for i, url := range []string{"https://a.com/1", "https://a.com/2"} {
		require.NoError(t, st.CreateArticle(ctx, &model.Article{
			Title:         "Article",
			URL:           url,
			PublishedDate: time.Now().UTC().Add(time.Duration(i) * time.Hour),
			FirmID:        firm.ID,
		}))
	}
	require.NoError(t, st.CreateArticle(ctx, &model.Article{
		Title: "Other", URL: "https://b.com/1", PublishedDate: time.Now().UTC(),
	}))

	articles, err := st.ListArticles(ctx, ArticleFilter{FirmID: firm.ID})
	require.NoError(t, err)
	assert.Len(t, articles, 2)
	for _, a := range articles {
		assert.Equal(t, firm.ID, a.FirmID)
	}
}

// --- Firms and platforms ---

func TestSQLite_FindFirmByName_Substring(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Redwood Services")

	// Stored name is a substring of the queried name.
	got, err := st.FindFirmByName(ctx, "Redwood Services Group LLC")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firm.ID, got.ID)

	// Queried name is a substring of the stored name, case-insensitive.
	got, err = st.FindFirmByName(ctx, "redwood")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firm.ID, got.ID)

	got, err = st.FindFirmByName(ctx, "Unknown Capital")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListActivePlatforms_SkipsInactive(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedPlatform(t, st, "Apex Service Partners", "")
	inactive := &model.Platform{Name: "Dormant Platform", Slug: "dormant-platform", IsActive: false}
	require.NoError(t, st.CreatePlatform(ctx, inactive))

	platforms, err := st.ListActivePlatforms(ctx)
	require.NoError(t, err)
	require.Len(t, platforms, 1)
	assert.Equal(t, "Apex Service Partners", platforms[0].Name)
}

func TestSQLite_BrandSnapshot_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	platform := seedPlatform(t, st, "Sila Services", "")

	snap := model.BrandSnapshot{
		Brands:    []string{"ABC Heating", "All-Star Plumbing"},
		ScrapedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.SaveBrandSnapshot(ctx, platform.ID, snap))

	got, err := st.FindPlatformByName(ctx, "Sila")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Snapshot)
	assert.Equal(t, snap.Brands, got.Snapshot.Brands)
	require.NotNil(t, got.LastScrapedAt)
}

func TestSQLite_BrandSnapshot_PlatformMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SaveBrandSnapshot(context.Background(), "missing", model.BrandSnapshot{ScrapedAt: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "platform not found")
}

// --- Brands ---

func TestSQLite_Brand_CreateGetLink(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Alpine Investors")
	platform := seedPlatform(t, st, "Apex Service Partners", firm.ID)

	brand := &model.Brand{
		Name:               "ABC Heating & Air",
		Slug:               model.Slugify("ABC Heating & Air"),
		Location:           "Austin, TX",
		VerificationSource: "https://achrnews.com/apex-abc",
	}
	require.NoError(t, st.CreateBrand(ctx, brand))

	got, err := st.GetBrandBySlug(ctx, "abc-heating-air")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.FirmID)

	require.NoError(t, st.LinkBrand(ctx, brand.ID, firm.ID, platform.ID))

	got, err = st.GetBrandBySlug(ctx, "abc-heating-air")
	require.NoError(t, err)
	assert.Equal(t, firm.ID, got.FirmID)
	assert.Equal(t, platform.ID, got.PlatformID)
}

func TestSQLite_LinkBrand_EmptyKeepsExisting(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Alpine Investors")
	brand := &model.Brand{Name: "Keep Firm", Slug: "keep-firm", FirmID: firm.ID}
	require.NoError(t, st.CreateBrand(ctx, brand))

	// Linking with an empty firm ID must not clear the existing one.
	require.NoError(t, st.LinkBrand(ctx, brand.ID, "", ""))

	got, err := st.GetBrandBySlug(ctx, "keep-firm")
	require.NoError(t, err)
	assert.Equal(t, firm.ID, got.FirmID)
}

func TestSQLite_LinkBrand_ExistingFirmIsSticky(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firmA := seedFirm(t, st, "Alpine Investors")
	firmB := seedFirm(t, st, "Redwood Services")
	platform := seedPlatform(t, st, "Apex Service Partners", firmB.ID)

	brand := &model.Brand{Name: "Sticky Heating", Slug: "sticky-heating", FirmID: firmA.ID}
	require.NoError(t, st.CreateBrand(ctx, brand))

	// A later link to another firm only fills the missing platform.
	require.NoError(t, st.LinkBrand(ctx, brand.ID, firmB.ID, platform.ID))

	got, err := st.GetBrandBySlug(ctx, "sticky-heating")
	require.NoError(t, err)
	assert.Equal(t, firmA.ID, got.FirmID)
	assert.Equal(t, platform.ID, got.PlatformID)
}

// --- Acquisitions ---

func TestSQLite_Acquisition_DedupByFirmBrand(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Alpine Investors")
	brand := &model.Brand{Name: "ABC Heating", Slug: "abc-heating"}
	require.NoError(t, st.CreateBrand(ctx, brand))

	got, err := st.GetAcquisitionByFirmBrand(ctx, firm.ID, brand.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	acq := &model.Acquisition{
		Date:    time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		Amount:  "$25M",
		FirmID:  firm.ID,
		BrandID: brand.ID,
	}
	require.NoError(t, st.CreateAcquisition(ctx, acq))

	got, err = st.GetAcquisitionByFirmBrand(ctx, firm.ID, brand.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acq.ID, got.ID)

	// Same pair again violates the unique constraint.
	dup := &model.Acquisition{Date: time.Now().UTC(), FirmID: firm.ID, BrandID: brand.ID}
	assert.Error(t, st.CreateAcquisition(ctx, dup))
}

func TestSQLite_ListAcquisitionRows_JoinsNames(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	firm := seedFirm(t, st, "Alpine Investors")
	platform := seedPlatform(t, st, "Apex Service Partners", firm.ID)
	brand := &model.Brand{Name: "ABC Heating", Slug: "abc-heating"}
	require.NoError(t, st.CreateBrand(ctx, brand))

	require.NoError(t, st.CreateAcquisition(ctx, &model.Acquisition{
		Date:       time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		FirmID:     firm.ID,
		PlatformID: platform.ID,
		BrandID:    brand.ID,
	}))

	rows, err := st.ListAcquisitionRows(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alpine Investors", rows[0].FirmName)
	assert.Equal(t, "Apex Service Partners", rows[0].PlatformName)
	assert.Equal(t, "ABC Heating", rows[0].BrandName)
}

// --- Scrape sources and logs ---

func TestSQLite_FindOrCreateSource_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.FindOrCreateSource(ctx, "ACHR News", "https://www.achrnews.com/rss", model.ChannelRSS)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, model.ChannelRSS, first.SourceType)

	second, err := st.FindOrCreateSource(ctx, "ACHR News", "https://www.achrnews.com/rss/topic/2", model.ChannelRSS)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "https://www.achrnews.com/rss/topic/2", second.URL)
}

func TestSQLite_RecordSourceRun_FailureCounter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	src, err := st.FindOrCreateSource(ctx, "Inbox", "", model.ChannelInbox)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, st.RecordSourceRun(ctx, src.ID, false, now))
	require.NoError(t, st.RecordSourceRun(ctx, src.ID, false, now))

	src, err = st.FindOrCreateSource(ctx, "Inbox", "", model.ChannelInbox)
	require.NoError(t, err)
	assert.Equal(t, 2, src.ConsecutiveFailures)
	assert.Nil(t, src.LastSuccessAt)

	require.NoError(t, st.RecordSourceRun(ctx, src.ID, true, now))

	src, err = st.FindOrCreateSource(ctx, "Inbox", "", model.ChannelInbox)
	require.NoError(t, err)
	assert.Equal(t, 0, src.ConsecutiveFailures)
	assert.NotNil(t, src.LastSuccessAt)
}

func TestSQLite_ScrapeLogs_CreateAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	src, err := st.FindOrCreateSource(ctx, "News Search", "", model.ChannelNews)
	require.NoError(t, err)

	started := time.Now().UTC().Add(-2 * time.Minute)
	require.NoError(t, st.CreateScrapeLog(ctx, &model.ScrapeLog{
		SourceID:     src.ID,
		StartedAt:    started,
		CompletedAt:  started.Add(time.Minute),
		Status:       "success",
		RecordsFound: 8,
		RecordsNew:   2,
	}))
	require.NoError(t, st.CreateScrapeLog(ctx, &model.ScrapeLog{
		SourceID:     src.ID,
		StartedAt:    started.Add(time.Minute),
		CompletedAt:  started.Add(2 * time.Minute),
		Status:       "partial",
		RecordsFound: 3,
		RecordsNew:   0,
		ErrorMessage: "2 fetches failed",
	}))

	logs, err := st.ListScrapeLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	// Newest first.
	assert.Equal(t, "partial", logs[0].Status)
	assert.Equal(t, "2 fetches failed", logs[0].ErrorMessage)
}
