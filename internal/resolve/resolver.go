// Package resolve maps extracted acquisition mentions onto persisted firms,
// platforms, and brands, and commits the records that pass the gates.
package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/store"
)

// Resolver commits extraction output to the store.
type Resolver struct {
	store           store.Store
	commitThreshold int
}

// New creates a Resolver. Extracted acquisitions below commitThreshold are
// dropped.
func New(st store.Store, commitThreshold int) *Resolver {
	return &Resolver{store: st, commitThreshold: commitThreshold}
}

// Match is the outcome of resolving an acquirer name.
type Match struct {
	FirmID     string
	PlatformID string
}

// Found reports whether the name resolved to any known entity.
func (m Match) Found() bool {
	return m.FirmID != "" || m.PlatformID != ""
}

// FirmFor resolves an acquirer name against known platforms first, then
// firms. Platform names are checked first because platform acquisitions are
// usually reported under the platform's name, with the sponsor firm implied.
func (r *Resolver) FirmFor(ctx context.Context, name string) (Match, error) {
	platform, err := r.store.FindPlatformByName(ctx, name)
	if err != nil {
		return Match{}, eris.Wrap(err, "resolve: find platform")
	}
	if platform != nil {
		return Match{FirmID: platform.FirmID, PlatformID: platform.ID}, nil
	}

	firm, err := r.store.FindFirmByName(ctx, name)
	if err != nil {
		return Match{}, eris.Wrap(err, "resolve: find firm")
	}
	if firm != nil {
		return Match{FirmID: firm.ID}, nil
	}
	return Match{}, nil
}

// CommitArticle stores the article unless its URL is already known. Returns
// whether a new row was written.
func (r *Resolver) CommitArticle(ctx context.Context, article *model.Article) (bool, error) {
	existing, err := r.store.GetArticleByURL(ctx, article.URL)
	if err != nil {
		return false, eris.Wrap(err, "resolve: check article url")
	}
	if existing != nil {
		article.ID = existing.ID
		return false, nil
	}
	if err := r.store.CreateArticle(ctx, article); err != nil {
		return false, eris.Wrap(err, "resolve: create article")
	}
	return true, nil
}

// CommitAcquisition resolves one extracted acquisition and stores it if it
// passes the gates: score at or above the commit threshold, both names
// present, acquirer resolvable, and the (firm, brand) pair not yet recorded.
// Later mentions of a known pair are corroboration, not new deals.
func (r *Resolver) CommitAcquisition(ctx context.Context, ext model.ExtractedAcquisition, article *model.Article) (bool, error) {
	if ext.RelevanceScore < r.commitThreshold || ext.FirmName == "" || ext.BrandName == "" {
		zap.L().Debug("resolve: acquisition below commit gate",
			zap.String("firm", ext.FirmName),
			zap.String("brand", ext.BrandName),
			zap.Int("score", ext.RelevanceScore))
		return false, nil
	}

	match, err := r.FirmFor(ctx, ext.FirmName)
	if err != nil {
		return false, err
	}
	if match.FirmID == "" {
		// A platform with no known sponsor or a wholly unknown acquirer:
		// there is no firm row to hang the deal on.
		zap.L().Info("resolve: acquirer not recognized, skipping",
			zap.String("firm", ext.FirmName),
			zap.String("brand", ext.BrandName))
		return false, nil
	}

	brand, err := r.ensureBrand(ctx, ext, match, article)
	if err != nil {
		return false, err
	}

	existing, err := r.store.GetAcquisitionByFirmBrand(ctx, match.FirmID, brand.ID)
	if err != nil {
		return false, eris.Wrap(err, "resolve: check acquisition pair")
	}
	if existing != nil {
		return false, nil
	}

	dealType := "acquisition"
	if match.PlatformID != "" {
		dealType = "platform_acquisition"
	}

	acq := &model.Acquisition{
		Date:        r.acquisitionDate(ext, article),
		Amount:      ext.DealAmount,
		DealType:    dealType,
		SourceURL:   article.URL,
		SourceTitle: article.Title,
		Notes:       ext.Summary,
		FirmID:      match.FirmID,
		PlatformID:  match.PlatformID,
		BrandID:     brand.ID,
	}
	if err := r.store.CreateAcquisition(ctx, acq); err != nil {
		return false, eris.Wrap(err, "resolve: create acquisition")
	}

	zap.L().Info("resolve: acquisition stored",
		zap.String("firm", ext.FirmName),
		zap.String("brand", ext.BrandName),
		zap.String("source", article.URL))
	return true, nil
}

// CommitPlatformBrand stores a brand observed on a platform's brands page,
// linking it to the platform and its sponsor. Returns whether a new brand
// row was written.
func (r *Resolver) CommitPlatformBrand(ctx context.Context, pb model.PortfolioBrand, platform *model.Platform) (bool, error) {
	slug := model.Slugify(pb.Name)
	if slug == "" {
		return false, nil
	}

	existing, err := r.store.GetBrandBySlug(ctx, slug)
	if err != nil {
		return false, eris.Wrap(err, "resolve: check brand slug")
	}
	if existing != nil {
		if existing.PlatformID == "" || existing.FirmID == "" {
			if err := r.store.LinkBrand(ctx, existing.ID, platform.FirmID, platform.ID); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	brand := &model.Brand{
		Name:               pb.Name,
		Slug:               slug,
		Location:           pb.Location,
		Website:            pb.Website,
		FirmID:             platform.FirmID,
		PlatformID:         platform.ID,
		VerificationSource: platform.BrandsPageURL,
	}
	if err := r.store.CreateBrand(ctx, brand); err != nil {
		return false, eris.Wrap(err, "resolve: create platform brand")
	}
	return true, nil
}

// ensureBrand finds the brand by slug, creating or relinking as needed.
func (r *Resolver) ensureBrand(ctx context.Context, ext model.ExtractedAcquisition, match Match, article *model.Article) (*model.Brand, error) {
	slug := model.Slugify(ext.BrandName)

	brand, err := r.store.GetBrandBySlug(ctx, slug)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: check brand slug")
	}
	if brand != nil {
		if brand.FirmID == "" || brand.PlatformID == "" {
			if err := r.store.LinkBrand(ctx, brand.ID, match.FirmID, match.PlatformID); err != nil {
				return nil, err
			}
			if brand.FirmID == "" {
				brand.FirmID = match.FirmID
			}
			if brand.PlatformID == "" {
				brand.PlatformID = match.PlatformID
			}
		}
		return brand, nil
	}

	date := r.acquisitionDate(ext, article)
	brand = &model.Brand{
		Name:               ext.BrandName,
		Slug:               slug,
		Location:           ext.Location,
		AcquisitionDate:    &date,
		AcquisitionPrice:   ext.DealAmount,
		FirmID:             match.FirmID,
		PlatformID:         match.PlatformID,
		VerificationSource: article.URL,
	}
	if err := r.store.CreateBrand(ctx, brand); err != nil {
		return nil, eris.Wrap(err, "resolve: create brand")
	}
	return brand, nil
}

// acquisitionDate prefers the extracted date, then the article's publish
// date, then the current time.
func (r *Resolver) acquisitionDate(ext model.ExtractedAcquisition, article *model.Article) time.Time {
	if ext.Date != "" {
		if parsed, err := time.Parse("2006-01-02", ext.Date); err == nil {
			return parsed
		}
	}
	if article != nil && !article.PublishedDate.IsZero() {
		return article.PublishedDate
	}
	return time.Now().UTC()
}
