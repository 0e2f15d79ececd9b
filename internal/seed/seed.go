// Package seed loads the baseline firm and platform catalog into the store.
// The catalog is the starting roster the scraping channels enrich; re-applying
// it is idempotent.
package seed

import (
	"context"
	_ "embed"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/pmackar/aireshark/internal/db"
	"github.com/pmackar/aireshark/internal/model"
	"github.com/pmackar/aireshark/internal/store"
)

//go:embed seed.yaml
var seedYAML []byte

// Firm is one PE sponsor in the catalog.
type Firm struct {
	Name        string `yaml:"name"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// Platform is one roll-up platform in the catalog. FirmSlug links it to its
// sponsor; empty means the sponsor is not yet known.
type Platform struct {
	Name          string `yaml:"name"`
	Slug          string `yaml:"slug"`
	FirmSlug      string `yaml:"firm_slug"`
	BrandsPageURL string `yaml:"brands_page_url"`
	Active        bool   `yaml:"active"`
}

// Catalog is the embedded seed data.
type Catalog struct {
	Firms     []Firm     `yaml:"firms"`
	Platforms []Platform `yaml:"platforms"`
}

// Load parses the embedded catalog.
func Load() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(seedYAML, &c); err != nil {
		return nil, eris.Wrap(err, "seed: parse catalog")
	}
	return &c, nil
}

// Result reports what a seed run created.
type Result struct {
	FirmsCreated     int
	PlatformsCreated int
}

// Apply inserts any catalog entries the store does not already have, one row
// at a time through the store interface. Works against either driver.
func (c *Catalog) Apply(ctx context.Context, st store.Store) (*Result, error) {
	var res Result
	firmIDs := make(map[string]string, len(c.Firms))

	for _, f := range c.Firms {
		existing, err := st.FindFirmByName(ctx, f.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			firmIDs[f.Slug] = existing.ID
			continue
		}
		firm := &model.Firm{Name: f.Name, Slug: f.Slug, Description: f.Description}
		if err := st.CreateFirm(ctx, firm); err != nil {
			return nil, err
		}
		firmIDs[f.Slug] = firm.ID
		res.FirmsCreated++
	}

	for _, p := range c.Platforms {
		existing, err := st.FindPlatformByName(ctx, p.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}
		platform := &model.Platform{
			Name:          p.Name,
			Slug:          p.Slug,
			FirmID:        firmIDs[p.FirmSlug],
			BrandsPageURL: p.BrandsPageURL,
			IsActive:      p.Active,
		}
		if err := st.CreatePlatform(ctx, platform); err != nil {
			return nil, err
		}
		res.PlatformsCreated++
	}

	return &res, nil
}

// ApplyBulk upserts the catalog through two bulk operations, for the postgres
// driver. Existing rows keep their ids; names, sponsor links, and brand-page
// URLs are refreshed from the catalog.
func (c *Catalog) ApplyBulk(ctx context.Context, pool db.Pool) (int64, error) {
	firmRows := make([][]any, 0, len(c.Firms))
	for _, f := range c.Firms {
		firmRows = append(firmRows, []any{uuid.New().String(), f.Name, f.Slug, f.Description})
	}

	n, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "firms",
		Columns:      []string{"id", "name", "slug", "description"},
		ConflictKeys: []string{"slug"},
		UpdateCols:   []string{"name", "description"},
	}, firmRows)
	if err != nil {
		return 0, err
	}

	firmIDs, err := firmIDsBySlug(ctx, pool)
	if err != nil {
		return 0, err
	}

	platformRows := make([][]any, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		var firmID any
		if id, ok := firmIDs[p.FirmSlug]; ok {
			firmID = id
		}
		platformRows = append(platformRows, []any{
			uuid.New().String(), p.Name, p.Slug, firmID, p.BrandsPageURL, p.Active,
		})
	}

	m, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "platforms",
		Columns:      []string{"id", "name", "slug", "firm_id", "brands_page_url", "is_active"},
		ConflictKeys: []string{"slug"},
		UpdateCols:   []string{"name", "firm_id", "brands_page_url", "is_active"},
	}, platformRows)
	if err != nil {
		return 0, err
	}

	return n + m, nil
}

func firmIDsBySlug(ctx context.Context, pool db.Pool) (map[string]string, error) {
	rows, err := pool.Query(ctx, `SELECT slug, id FROM firms`)
	if err != nil {
		return nil, eris.Wrap(err, "seed: list firm ids")
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var slug, id string
		if err := rows.Scan(&slug, &id); err != nil {
			return nil, eris.Wrap(err, "seed: scan firm id")
		}
		ids[slug] = id
	}
	return ids, eris.Wrap(rows.Err(), "seed: iterate firm ids")
}
