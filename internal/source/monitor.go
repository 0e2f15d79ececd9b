package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/extract"
	"github.com/pmackar/aireshark/internal/fetch"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/resolve"
	"github.com/pmackar/aireshark/internal/store"
)

// BrandPageExtractor turns a fetched brands page into the list of brands
// it currently advertises.
type BrandPageExtractor interface {
	ExtractBrands(ctx context.Context, page *model.Page) ([]model.PortfolioBrand, error)
}

// CustomRule extracts with a hand-written per-platform rule, falling back
// to the model when the rule comes up empty (site redesigns break
// selectors long before they break prose).
type CustomRule struct {
	rule     func(rawHTML string) []model.PortfolioBrand
	fallback BrandPageExtractor
}

func (c *CustomRule) ExtractBrands(ctx context.Context, page *model.Page) ([]model.PortfolioBrand, error) {
	if brands := c.rule(page.RawHTML); len(brands) > 0 {
		return brands, nil
	}
	if c.fallback == nil {
		return nil, nil
	}
	return c.fallback.ExtractBrands(ctx, page)
}

// ModelFallback asks the extraction model to read the page text.
type ModelFallback struct {
	extractor *extract.Extractor
	firmName  string
}

func (m *ModelFallback) ExtractBrands(ctx context.Context, page *model.Page) ([]model.PortfolioBrand, error) {
	info, err := m.extractor.ExtractPortfolio(ctx, page.Text, m.firmName)
	if err != nil {
		return nil, err
	}
	return info.Brands, nil
}

// extractorFor picks the extraction strategy for a platform: a custom rule
// when one exists for the slug, otherwise the model alone.
func extractorFor(platform *model.Platform, ex *extract.Extractor) BrandPageExtractor {
	fallback := &ModelFallback{extractor: ex, firmName: platform.Name}
	if rule, ok := customRules[platform.Slug]; ok {
		return &CustomRule{rule: rule, fallback: fallback}
	}
	return fallback
}

var customRules = map[string]func(string) []model.PortfolioBrand{
	"sila-services":         extractSilaBrands,
	"apex-service-partners": extractApexBrands,
	"wrench-group":          extractWrenchBrands,
}

// invalidBrandPatterns reject testimonial headings, gallery labels, and
// marketing copy that the loose selectors occasionally pick up.
var invalidBrandPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^from `),
	regexp.MustCompile(`(?i)general manager`),
	regexp.MustCompile(`(?i)customers$`),
	regexp.MustCompile(`(?i)^testimonial`),
	regexp.MustCompile(`(?i)^quote`),
	regexp.MustCompile(`(?i)^gallery$`),
	regexp.MustCompile(`^\d+$`),
	regexp.MustCompile(`(?i)^[a-z]$`),
	regexp.MustCompile(`(?i)commitment`),
	regexp.MustCompile(`(?i)priceless`),
	regexp.MustCompile(`(?i)integrity`),
	regexp.MustCompile(`(?i)unwavering`),
}

func isValidBrandName(name string) bool {
	if len(name) <= 3 || len(name) >= 60 {
		return false
	}
	for _, pattern := range invalidBrandPatterns {
		if pattern.MatchString(name) {
			return false
		}
	}
	return true
}

// Sila's brands page never lists brands directly; they surface in "From
// <Brand> Customers" testimonial headings.
var silaCustomerPattern = regexp.MustCompile(`(?i)From\s+(.+?)\s+Customers`)

var silaEntityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#8217;", "'",
	"&#39;", "'",
)

func extractSilaBrands(rawHTML string) []model.PortfolioBrand {
	var brands []model.PortfolioBrand
	seen := make(map[string]struct{})
	for _, match := range silaCustomerPattern.FindAllStringSubmatch(rawHTML, -1) {
		name := strings.TrimSpace(silaEntityReplacer.Replace(match[1]))
		lower := strings.ToLower(name)
		if strings.Contains(lower, "sila") {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		if isValidBrandName(name) {
			brands = append(brands, model.PortfolioBrand{Name: name})
		}
	}
	return brands
}

func extractApexBrands(rawHTML string) []model.PortfolioBrand {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var brands []model.PortfolioBrand
	doc.Find(".partner-card, .partner, .brand-card, [class*='partner'], .grid-item").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("h2, h3, h4, .name, .title").First().Text())
		if name == "" {
			name, _ = sel.Find("img").First().Attr("alt")
			name = strings.TrimSpace(name)
		}
		if name == "" || !isValidBrandName(name) || strings.Contains(strings.ToLower(name), "apex") {
			return
		}
		website, _ := sel.Find("a").First().Attr("href")
		if !strings.HasPrefix(website, "http") {
			website = ""
		}
		brands = append(brands, model.PortfolioBrand{
			Name:     name,
			Website:  website,
			Location: strings.TrimSpace(sel.Find(".location, .city").First().Text()),
		})
	})
	return brands
}

func extractWrenchBrands(rawHTML string) []model.PortfolioBrand {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	var brands []model.PortfolioBrand
	doc.Find(".brand, .brand-card, .company, article, .brand-item").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("h2, h3, .brand-name, .title").First().Text())
		if name == "" || !isValidBrandName(name) || strings.Contains(strings.ToLower(name), "wrench") {
			return
		}
		website, _ := sel.Find("a[href*='http']").First().Attr("href")
		brands = append(brands, model.PortfolioBrand{
			Name:     name,
			Website:  website,
			Location: strings.TrimSpace(sel.Find(".location, .market").First().Text()),
		})
	})
	return brands
}

// MonitorAdapter watches each active platform's public brands page and
// turns newly listed brands into brand and acquisition records. Brands
// that disappear from a page are logged, never deleted: platforms prune
// their marketing pages for all sorts of reasons.
type MonitorAdapter struct {
	store     store.Store
	resolver  *resolve.Resolver
	extractor *extract.Extractor
	fetcher   fetch.Fetcher
	pause     time.Duration
}

func NewMonitorAdapter(st store.Store, rs *resolve.Resolver, ex *extract.Extractor, fetcher fetch.Fetcher) *MonitorAdapter {
	return &MonitorAdapter{
		store:     st,
		resolver:  rs,
		extractor: ex,
		fetcher:   fetcher,
		pause:     5 * time.Second,
	}
}

// Run monitors every active platform that has a brands page configured.
func (a *MonitorAdapter) Run(ctx context.Context) []model.MonitorResult {
	platforms, err := a.store.ListActivePlatforms(ctx)
	if err != nil {
		return []model.MonitorResult{{Errors: []string{err.Error()}}}
	}

	var results []model.MonitorResult
	for i := range platforms {
		platform := &platforms[i]
		if platform.BrandsPageURL == "" {
			continue
		}
		results = append(results, a.MonitorPlatform(ctx, platform))
		if err := sleep(ctx, a.pause); err != nil {
			break
		}
	}
	return results
}

// MonitorPlatform runs one platform: fetch, extract, diff against the
// stored snapshot, commit additions, then overwrite the snapshot.
func (a *MonitorAdapter) MonitorPlatform(ctx context.Context, platform *model.Platform) model.MonitorResult {
	result := model.MonitorResult{PlatformName: platform.Name}
	startedAt := time.Now().UTC()

	if platform.BrandsPageURL == "" {
		result.Errors = append(result.Errors, fmt.Sprintf("no brands page configured for %s", platform.Name))
		return result
	}

	page, err := a.fetcher.Fetch(ctx, platform.BrandsPageURL)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch %s: %v", platform.BrandsPageURL, err))
		a.logRun(ctx, platform, startedAt, &result)
		return result
	}

	brands, err := extractorFor(platform, a.extractor).ExtractBrands(ctx, page)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("extract brands: %v", err))
		a.logRun(ctx, platform, startedAt, &result)
		return result
	}
	result.BrandsFound = len(brands)

	currentNames := make([]string, 0, len(brands))
	byName := make(map[string]model.PortfolioBrand, len(brands))
	for _, b := range brands {
		currentNames = append(currentNames, b.Name)
		byName[strings.ToLower(b.Name)] = b
	}

	var previousNames []string
	if platform.Snapshot != nil {
		previousNames = platform.Snapshot.Brands
	}
	added, removed := model.DiffBrandNames(previousNames, currentNames)

	for _, name := range added {
		created, err := a.commitBrand(ctx, byName[strings.ToLower(name)], platform)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("brand %s: %v", name, err))
			continue
		}
		if created {
			result.BrandsAdded++
		}
	}
	result.BrandsRemoved = len(removed)
	for _, name := range removed {
		zap.L().Info("brand no longer listed",
			zap.String("platform", platform.Name),
			zap.String("brand", name))
	}

	snap := model.BrandSnapshot{Brands: currentNames, ScrapedAt: time.Now().UTC()}
	if err := a.store.SaveBrandSnapshot(ctx, platform.ID, snap); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("save snapshot: %v", err))
	}

	a.logRun(ctx, platform, startedAt, &result)
	return result
}

// commitBrand writes one newly observed brand and, when the platform has a
// known sponsor, its acquisition record.
func (a *MonitorAdapter) commitBrand(ctx context.Context, pb model.PortfolioBrand, platform *model.Platform) (bool, error) {
	created, err := a.resolver.CommitPlatformBrand(ctx, pb, platform)
	if err != nil || !created {
		return false, err
	}
	zap.L().Info("brand discovered on platform page",
		zap.String("platform", platform.Name),
		zap.String("brand", pb.Name))

	if platform.FirmID == "" {
		return true, nil
	}
	brand, err := a.store.GetBrandBySlug(ctx, model.Slugify(pb.Name))
	if err != nil || brand == nil {
		return true, err
	}
	existing, err := a.store.GetAcquisitionByFirmBrand(ctx, platform.FirmID, brand.ID)
	if err != nil || existing != nil {
		return true, err
	}
	acq := &model.Acquisition{
		Date:        time.Now().UTC(),
		DealType:    "platform_acquisition",
		SourceURL:   platform.BrandsPageURL,
		SourceTitle: fmt.Sprintf("Discovered on %s website", platform.Name),
		Notes:       "Automatically detected via platform monitoring",
		FirmID:      platform.FirmID,
		PlatformID:  platform.ID,
		BrandID:     brand.ID,
	}
	if err := a.store.CreateAcquisition(ctx, acq); err != nil {
		return true, err
	}
	return true, nil
}

func (a *MonitorAdapter) logRun(ctx context.Context, platform *model.Platform, startedAt time.Time, result *model.MonitorResult) {
	name := fmt.Sprintf("%s - Brands Page", platform.Name)
	src, err := a.store.FindOrCreateSource(ctx, name, platform.BrandsPageURL, model.ChannelPlatform)
	if err != nil {
		zap.L().Warn("monitor source lookup failed", zap.Error(err))
		return
	}
	status := "success"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	entry := &model.ScrapeLog{
		SourceID:     src.ID,
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
		Status:       status,
		RecordsFound: result.BrandsFound,
		RecordsNew:   result.BrandsAdded,
		ErrorMessage: strings.Join(result.Errors, "; "),
	}
	if err := a.store.CreateScrapeLog(ctx, entry); err != nil {
		zap.L().Warn("scrape log write failed", zap.Error(err))
	}
	if err := a.store.RecordSourceRun(ctx, src.ID, len(result.Errors) == 0, entry.CompletedAt); err != nil {
		zap.L().Warn("source counter update failed", zap.Error(err))
	}
}
