package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pmackar/aireshark/internal/db"
	"github.com/pmackar/aireshark/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_article_by_url": `SELECT id, title, url, source, summary, published_date, firm_id, platform_id, brand_id FROM articles WHERE url = $1`,
	"get_brand_by_slug":  `SELECT id, name, slug, location, website, acquisition_date, acquisition_price, firm_id, platform_id, verification_source FROM brands WHERE slug = $1`,
	"get_acq_by_pair":    `SELECT id, date, amount, deal_type, source_url, source_title, notes, firm_id, platform_id, brand_id FROM acquisitions WHERE firm_id = $1 AND brand_id = $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., source seeding bulk upserts).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS firms (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS platforms (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	slug            TEXT NOT NULL UNIQUE,
	firm_id         TEXT REFERENCES firms(id),
	brands_page_url TEXT NOT NULL DEFAULT '',
	is_active       BOOLEAN NOT NULL DEFAULT true,
	brand_snapshot  JSONB,
	last_scraped_at TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS brands (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                TEXT NOT NULL,
	slug                TEXT NOT NULL UNIQUE,
	location            TEXT NOT NULL DEFAULT '',
	website             TEXT NOT NULL DEFAULT '',
	acquisition_date    TIMESTAMPTZ,
	acquisition_price   TEXT NOT NULL DEFAULT '',
	firm_id             TEXT REFERENCES firms(id),
	platform_id         TEXT REFERENCES platforms(id),
	verification_source TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS articles (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title          TEXT NOT NULL,
	url            TEXT NOT NULL UNIQUE,
	source         TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	published_date TIMESTAMPTZ NOT NULL,
	firm_id        TEXT REFERENCES firms(id),
	platform_id    TEXT REFERENCES platforms(id),
	brand_id       TEXT REFERENCES brands(id),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS acquisitions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	date         TIMESTAMPTZ NOT NULL,
	amount       TEXT NOT NULL DEFAULT '',
	deal_type    TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	source_title TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT '',
	firm_id      TEXT NOT NULL REFERENCES firms(id),
	platform_id  TEXT REFERENCES platforms(id),
	brand_id     TEXT NOT NULL REFERENCES brands(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (firm_id, brand_id)
);

CREATE TABLE IF NOT EXISTS scrape_sources (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                   TEXT NOT NULL UNIQUE,
	url                    TEXT NOT NULL DEFAULT '',
	source_type            TEXT NOT NULL,
	scrape_frequency_hours INTEGER NOT NULL DEFAULT 24,
	is_active              BOOLEAN NOT NULL DEFAULT true,
	platform_id            TEXT REFERENCES platforms(id),
	last_scraped_at        TIMESTAMPTZ,
	last_success_at        TIMESTAMPTZ,
	consecutive_failures   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scrape_logs (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_id      TEXT NOT NULL REFERENCES scrape_sources(id),
	started_at     TIMESTAMPTZ NOT NULL,
	completed_at   TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	records_found  INTEGER NOT NULL DEFAULT 0,
	records_new    INTEGER NOT NULL DEFAULT 0,
	error_message  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_firm_id ON articles(firm_id);
CREATE INDEX IF NOT EXISTS idx_brands_slug ON brands(slug);
CREATE INDEX IF NOT EXISTS idx_brands_firm_id ON brands(firm_id);
CREATE INDEX IF NOT EXISTS idx_acquisitions_firm_brand ON acquisitions(firm_id, brand_id);
CREATE INDEX IF NOT EXISTS idx_scrape_logs_source_id ON scrape_logs(source_id);
CREATE INDEX IF NOT EXISTS idx_platforms_is_active ON platforms(is_active);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// nullable maps the empty string to NULL for optional reference columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// deref maps NULL reference columns back to the empty string.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *PostgresStore) GetArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	var a model.Article
	var firmID, platformID, brandID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, title, url, source, summary, published_date, firm_id, platform_id, brand_id
		 FROM articles WHERE url = $1`,
		url,
	).Scan(&a.ID, &a.Title, &a.URL, &a.Source, &a.Summary, &a.PublishedDate, &firmID, &platformID, &brandID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get article by url")
	}
	a.FirmID = deref(firmID)
	a.PlatformID = deref(platformID)
	a.BrandID = deref(brandID)
	return &a, nil
}

func (s *PostgresStore) CreateArticle(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO articles (id, title, url, source, summary, published_date, firm_id, platform_id, brand_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		article.ID, article.Title, article.URL, article.Source, article.Summary,
		article.PublishedDate, nullable(article.FirmID), nullable(article.PlatformID), nullable(article.BrandID),
	)
	return eris.Wrap(err, "postgres: insert article")
}

func (s *PostgresStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error) {
	query := `SELECT id, title, url, source, summary, published_date, firm_id, platform_id, brand_id
	          FROM articles WHERE true`
	args := []any{}
	argIdx := 1

	if filter.FirmID != "" {
		query += fmt.Sprintf(` AND firm_id = $%d`, argIdx)
		args = append(args, filter.FirmID)
		argIdx++
	}
	if filter.PlatformID != "" {
		query += fmt.Sprintf(` AND platform_id = $%d`, argIdx)
		args = append(args, filter.PlatformID)
		argIdx++
	}
	if filter.BrandID != "" {
		query += fmt.Sprintf(` AND brand_id = $%d`, argIdx)
		args = append(args, filter.BrandID)
		argIdx++
	}
	query += ` ORDER BY published_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var firmID, platformID, brandID *string
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Source, &a.Summary, &a.PublishedDate, &firmID, &platformID, &brandID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan article")
		}
		a.FirmID = deref(firmID)
		a.PlatformID = deref(platformID)
		a.BrandID = deref(brandID)
		articles = append(articles, a)
	}
	return articles, eris.Wrap(rows.Err(), "postgres: list articles iterate")
}

func (s *PostgresStore) CreateFirm(ctx context.Context, firm *model.Firm) error {
	if firm.ID == "" {
		firm.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO firms (id, name, slug, description) VALUES ($1, $2, $3, $4)`,
		firm.ID, firm.Name, firm.Slug, firm.Description,
	)
	return eris.Wrap(err, "postgres: insert firm")
}

func (s *PostgresStore) CreatePlatform(ctx context.Context, platform *model.Platform) error {
	if platform.ID == "" {
		platform.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO platforms (id, name, slug, firm_id, brands_page_url, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		platform.ID, platform.Name, platform.Slug, nullable(platform.FirmID),
		platform.BrandsPageURL, platform.IsActive,
	)
	return eris.Wrap(err, "postgres: insert platform")
}

func (s *PostgresStore) ListFirms(ctx context.Context) ([]model.Firm, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, description FROM firms ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list firms")
	}
	defer rows.Close()

	var firms []model.Firm
	for rows.Next() {
		var f model.Firm
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan firm")
		}
		firms = append(firms, f)
	}
	return firms, eris.Wrap(rows.Err(), "postgres: list firms iterate")
}

func (s *PostgresStore) FindFirmByName(ctx context.Context, name string) (*model.Firm, error) {
	var f model.Firm
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, description FROM firms
		 WHERE name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || name || '%'
		 ORDER BY length(name) LIMIT 1`,
		name,
	).Scan(&f.ID, &f.Name, &f.Slug, &f.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find firm by name")
	}
	return &f, nil
}

func (s *PostgresStore) ListActivePlatforms(ctx context.Context) ([]model.Platform, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, slug, firm_id, brands_page_url, is_active, brand_snapshot, last_scraped_at
		 FROM platforms WHERE is_active ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list active platforms")
	}
	defer rows.Close()

	var platforms []model.Platform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, *p)
	}
	return platforms, eris.Wrap(rows.Err(), "postgres: list active platforms iterate")
}

func (s *PostgresStore) FindPlatformByName(ctx context.Context, name string) (*model.Platform, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, firm_id, brands_page_url, is_active, brand_snapshot, last_scraped_at
		 FROM platforms
		 WHERE name ILIKE '%' || $1 || '%' OR $1 ILIKE '%' || name || '%'
		 ORDER BY length(name) LIMIT 1`,
		name,
	)
	p, err := scanPlatform(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: find platform by name")
	}
	return p, nil
}

// scanPlatform scans one platform row from either a pgx.Row or pgx.Rows.
func scanPlatform(row pgx.Row) (*model.Platform, error) {
	var p model.Platform
	var firmID *string
	var snapJSON []byte

	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &firmID, &p.BrandsPageURL, &p.IsActive, &snapJSON, &p.LastScrapedAt); err != nil {
		return nil, err
	}
	p.FirmID = deref(firmID)
	if len(snapJSON) > 0 {
		p.Snapshot = &model.BrandSnapshot{}
		if err := json.Unmarshal(snapJSON, p.Snapshot); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal brand snapshot")
		}
	}
	return &p, nil
}

func (s *PostgresStore) SaveBrandSnapshot(ctx context.Context, platformID string, snap model.BrandSnapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal brand snapshot")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE platforms SET brand_snapshot = $1, last_scraped_at = $2 WHERE id = $3`,
		snapJSON, snap.ScrapedAt, platformID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save brand snapshot %s", platformID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("platform not found: %s", platformID)
	}
	return nil
}

func (s *PostgresStore) GetBrandBySlug(ctx context.Context, slug string) (*model.Brand, error) {
	var b model.Brand
	var firmID, platformID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, slug, location, website, acquisition_date, acquisition_price, firm_id, platform_id, verification_source
		 FROM brands WHERE slug = $1`,
		slug,
	).Scan(&b.ID, &b.Name, &b.Slug, &b.Location, &b.Website, &b.AcquisitionDate, &b.AcquisitionPrice, &firmID, &platformID, &b.VerificationSource)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get brand by slug")
	}
	b.FirmID = deref(firmID)
	b.PlatformID = deref(platformID)
	return &b, nil
}

func (s *PostgresStore) CreateBrand(ctx context.Context, brand *model.Brand) error {
	if brand.ID == "" {
		brand.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO brands (id, name, slug, location, website, acquisition_date, acquisition_price, firm_id, platform_id, verification_source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		brand.ID, brand.Name, brand.Slug, brand.Location, brand.Website,
		brand.AcquisitionDate, brand.AcquisitionPrice,
		nullable(brand.FirmID), nullable(brand.PlatformID), brand.VerificationSource,
	)
	return eris.Wrap(err, "postgres: insert brand")
}

func (s *PostgresStore) LinkBrand(ctx context.Context, brandID, firmID, platformID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE brands SET firm_id = COALESCE(firm_id, $1), platform_id = COALESCE(platform_id, $2) WHERE id = $3`,
		nullable(firmID), nullable(platformID), brandID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: link brand %s", brandID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("brand not found: %s", brandID)
	}
	return nil
}

func (s *PostgresStore) GetAcquisitionByFirmBrand(ctx context.Context, firmID, brandID string) (*model.Acquisition, error) {
	var a model.Acquisition
	var platformID *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, date, amount, deal_type, source_url, source_title, notes, firm_id, platform_id, brand_id
		 FROM acquisitions WHERE firm_id = $1 AND brand_id = $2`,
		firmID, brandID,
	).Scan(&a.ID, &a.Date, &a.Amount, &a.DealType, &a.SourceURL, &a.SourceTitle, &a.Notes, &a.FirmID, &platformID, &a.BrandID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get acquisition by firm and brand")
	}
	a.PlatformID = deref(platformID)
	return &a, nil
}

func (s *PostgresStore) CreateAcquisition(ctx context.Context, acq *model.Acquisition) error {
	if acq.ID == "" {
		acq.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO acquisitions (id, date, amount, deal_type, source_url, source_title, notes, firm_id, platform_id, brand_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		acq.ID, acq.Date, acq.Amount, acq.DealType, acq.SourceURL, acq.SourceTitle,
		acq.Notes, acq.FirmID, nullable(acq.PlatformID), acq.BrandID,
	)
	return eris.Wrap(err, "postgres: insert acquisition")
}

func (s *PostgresStore) ListAcquisitionRows(ctx context.Context, limit int) ([]AcquisitionRow, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx,
		`SELECT a.id, a.date, a.amount, a.deal_type, a.source_url, a.source_title, a.notes,
		        a.firm_id, a.platform_id, a.brand_id,
		        f.name, COALESCE(p.name, ''), b.name
		 FROM acquisitions a
		 JOIN firms f ON f.id = a.firm_id
		 LEFT JOIN platforms p ON p.id = a.platform_id
		 JOIN brands b ON b.id = a.brand_id
		 ORDER BY a.date DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list acquisition rows")
	}
	defer rows.Close()

	var result []AcquisitionRow
	for rows.Next() {
		var r AcquisitionRow
		var platformID *string
		if err := rows.Scan(&r.ID, &r.Date, &r.Amount, &r.DealType, &r.SourceURL, &r.SourceTitle, &r.Notes,
			&r.FirmID, &platformID, &r.BrandID, &r.FirmName, &r.PlatformName, &r.BrandName); err != nil {
			return nil, eris.Wrap(err, "postgres: scan acquisition row")
		}
		r.PlatformID = deref(platformID)
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "postgres: list acquisition rows iterate")
}

func (s *PostgresStore) FindOrCreateSource(ctx context.Context, name, url string, sourceType model.SourceChannel) (*model.ScrapeSource, error) {
	id := uuid.New().String()

	var src model.ScrapeSource
	var platformID *string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO scrape_sources (id, name, url, source_type)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET url = EXCLUDED.url
		 RETURNING id, name, url, source_type, scrape_frequency_hours, is_active, platform_id, last_scraped_at, last_success_at, consecutive_failures`,
		id, name, url, string(sourceType),
	).Scan(&src.ID, &src.Name, &src.URL, &src.SourceType, &src.ScrapeFrequencyHours,
		&src.IsActive, &platformID, &src.LastScrapedAt, &src.LastSuccessAt, &src.ConsecutiveFailures)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find or create source %s", name)
	}
	src.PlatformID = deref(platformID)
	return &src, nil
}

func (s *PostgresStore) RecordSourceRun(ctx context.Context, sourceID string, success bool, at time.Time) error {
	var query string
	if success {
		query = `UPDATE scrape_sources SET last_scraped_at = $1, last_success_at = $1, consecutive_failures = 0 WHERE id = $2`
	} else {
		query = `UPDATE scrape_sources SET last_scraped_at = $1, consecutive_failures = consecutive_failures + 1 WHERE id = $2`
	}

	tag, err := s.pool.Exec(ctx, query, at, sourceID)
	if err != nil {
		return eris.Wrapf(err, "postgres: record source run %s", sourceID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scrape_source not found: %s", sourceID)
	}
	return nil
}

func (s *PostgresStore) CreateScrapeLog(ctx context.Context, entry *model.ScrapeLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO scrape_logs (id, source_id, started_at, completed_at, status, records_found, records_new, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.SourceID, entry.StartedAt, entry.CompletedAt,
		entry.Status, entry.RecordsFound, entry.RecordsNew, entry.ErrorMessage,
	)
	return eris.Wrap(err, "postgres: insert scrape log")
}

func (s *PostgresStore) ListScrapeLogs(ctx context.Context, limit int) ([]model.ScrapeLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, source_id, started_at, completed_at, status, records_found, records_new, error_message
		 FROM scrape_logs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scrape logs")
	}
	defer rows.Close()

	var logs []model.ScrapeLog
	for rows.Next() {
		var l model.ScrapeLog
		if err := rows.Scan(&l.ID, &l.SourceID, &l.StartedAt, &l.CompletedAt, &l.Status, &l.RecordsFound, &l.RecordsNew, &l.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scrape log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list scrape logs iterate")
}
