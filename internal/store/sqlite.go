package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pmackar/aireshark/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// development and one-off runs; production uses PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS firms (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	slug        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS platforms (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	slug            TEXT NOT NULL UNIQUE,
	firm_id         TEXT REFERENCES firms(id),
	brands_page_url TEXT NOT NULL DEFAULT '',
	is_active       INTEGER NOT NULL DEFAULT 1,
	brand_snapshot  TEXT,
	last_scraped_at DATETIME,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS brands (
	id                  TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	slug                TEXT NOT NULL UNIQUE,
	location            TEXT NOT NULL DEFAULT '',
	website             TEXT NOT NULL DEFAULT '',
	acquisition_date    DATETIME,
	acquisition_price   TEXT NOT NULL DEFAULT '',
	firm_id             TEXT REFERENCES firms(id),
	platform_id         TEXT REFERENCES platforms(id),
	verification_source TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS articles (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	url            TEXT NOT NULL UNIQUE,
	source         TEXT NOT NULL DEFAULT '',
	summary        TEXT NOT NULL DEFAULT '',
	published_date DATETIME NOT NULL,
	firm_id        TEXT REFERENCES firms(id),
	platform_id    TEXT REFERENCES platforms(id),
	brand_id       TEXT REFERENCES brands(id),
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS acquisitions (
	id           TEXT PRIMARY KEY,
	date         DATETIME NOT NULL,
	amount       TEXT NOT NULL DEFAULT '',
	deal_type    TEXT NOT NULL DEFAULT '',
	source_url   TEXT NOT NULL DEFAULT '',
	source_title TEXT NOT NULL DEFAULT '',
	notes        TEXT NOT NULL DEFAULT '',
	firm_id      TEXT NOT NULL REFERENCES firms(id),
	platform_id  TEXT REFERENCES platforms(id),
	brand_id     TEXT NOT NULL REFERENCES brands(id),
	created_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (firm_id, brand_id)
);

CREATE TABLE IF NOT EXISTS scrape_sources (
	id                     TEXT PRIMARY KEY,
	name                   TEXT NOT NULL UNIQUE,
	url                    TEXT NOT NULL DEFAULT '',
	source_type            TEXT NOT NULL,
	scrape_frequency_hours INTEGER NOT NULL DEFAULT 24,
	is_active              INTEGER NOT NULL DEFAULT 1,
	platform_id            TEXT REFERENCES platforms(id),
	last_scraped_at        DATETIME,
	last_success_at        DATETIME,
	consecutive_failures   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scrape_logs (
	id            TEXT PRIMARY KEY,
	source_id     TEXT NOT NULL REFERENCES scrape_sources(id),
	started_at    DATETIME NOT NULL,
	completed_at  DATETIME NOT NULL,
	status        TEXT NOT NULL,
	records_found INTEGER NOT NULL DEFAULT 0,
	records_new   INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_articles_url ON articles(url);
CREATE INDEX IF NOT EXISTS idx_articles_firm_id ON articles(firm_id);
CREATE INDEX IF NOT EXISTS idx_brands_slug ON brands(slug);
CREATE INDEX IF NOT EXISTS idx_brands_firm_id ON brands(firm_id);
CREATE INDEX IF NOT EXISTS idx_acquisitions_firm_brand ON acquisitions(firm_id, brand_id);
CREATE INDEX IF NOT EXISTS idx_scrape_logs_source_id ON scrape_logs(source_id);
CREATE INDEX IF NOT EXISTS idx_platforms_is_active ON platforms(is_active);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", entity)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func (s *SQLiteStore) GetArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	var a model.Article
	var firmID, platformID, brandID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, url, source, summary, published_date, firm_id, platform_id, brand_id
		 FROM articles WHERE url = ?`,
		url,
	).Scan(&a.ID, &a.Title, &a.URL, &a.Source, &a.Summary, &a.PublishedDate, &firmID, &platformID, &brandID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get article by url")
	}
	a.FirmID = firmID.String
	a.PlatformID = platformID.String
	a.BrandID = brandID.String
	return &a, nil
}

func (s *SQLiteStore) CreateArticle(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (id, title, url, source, summary, published_date, firm_id, platform_id, brand_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID, article.Title, article.URL, article.Source, article.Summary,
		article.PublishedDate, nullable(article.FirmID), nullable(article.PlatformID), nullable(article.BrandID),
	)
	return eris.Wrap(err, "sqlite: insert article")
}

func (s *SQLiteStore) ListArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error) {
	query := `SELECT id, title, url, source, summary, published_date, firm_id, platform_id, brand_id
	          FROM articles WHERE true`
	args := []any{}

	if filter.FirmID != "" {
		query += ` AND firm_id = ?`
		args = append(args, filter.FirmID)
	}
	if filter.PlatformID != "" {
		query += ` AND platform_id = ?`
		args = append(args, filter.PlatformID)
	}
	if filter.BrandID != "" {
		query += ` AND brand_id = ?`
		args = append(args, filter.BrandID)
	}
	query += ` ORDER BY published_date DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list articles")
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		var a model.Article
		var firmID, platformID, brandID sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.Source, &a.Summary, &a.PublishedDate, &firmID, &platformID, &brandID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan article")
		}
		a.FirmID = firmID.String
		a.PlatformID = platformID.String
		a.BrandID = brandID.String
		articles = append(articles, a)
	}
	return articles, eris.Wrap(rows.Err(), "sqlite: list articles iterate")
}

func (s *SQLiteStore) CreateFirm(ctx context.Context, firm *model.Firm) error {
	if firm.ID == "" {
		firm.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO firms (id, name, slug, description) VALUES (?, ?, ?, ?)`,
		firm.ID, firm.Name, firm.Slug, firm.Description,
	)
	return eris.Wrap(err, "sqlite: insert firm")
}

func (s *SQLiteStore) CreatePlatform(ctx context.Context, platform *model.Platform) error {
	if platform.ID == "" {
		platform.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO platforms (id, name, slug, firm_id, brands_page_url, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		platform.ID, platform.Name, platform.Slug, nullable(platform.FirmID),
		platform.BrandsPageURL, platform.IsActive,
	)
	return eris.Wrap(err, "sqlite: insert platform")
}

func (s *SQLiteStore) ListFirms(ctx context.Context) ([]model.Firm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, description FROM firms ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list firms")
	}
	defer rows.Close()

	var firms []model.Firm
	for rows.Next() {
		var f model.Firm
		if err := rows.Scan(&f.ID, &f.Name, &f.Slug, &f.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan firm")
		}
		firms = append(firms, f)
	}
	return firms, eris.Wrap(rows.Err(), "sqlite: list firms iterate")
}

func (s *SQLiteStore) FindFirmByName(ctx context.Context, name string) (*model.Firm, error) {
	var f model.Firm
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, description FROM firms
		 WHERE lower(name) LIKE '%' || lower(?) || '%' OR lower(?) LIKE '%' || lower(name) || '%'
		 ORDER BY length(name) LIMIT 1`,
		name, name,
	).Scan(&f.ID, &f.Name, &f.Slug, &f.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find firm by name")
	}
	return &f, nil
}

func (s *SQLiteStore) ListActivePlatforms(ctx context.Context) ([]model.Platform, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, firm_id, brands_page_url, is_active, brand_snapshot, last_scraped_at
		 FROM platforms WHERE is_active = 1 ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list active platforms")
	}
	defer rows.Close()

	var platforms []model.Platform
	for rows.Next() {
		p, err := scanSQLitePlatform(rows.Scan)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, *p)
	}
	return platforms, eris.Wrap(rows.Err(), "sqlite: list active platforms iterate")
}

func (s *SQLiteStore) FindPlatformByName(ctx context.Context, name string) (*model.Platform, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, firm_id, brands_page_url, is_active, brand_snapshot, last_scraped_at
		 FROM platforms
		 WHERE lower(name) LIKE '%' || lower(?) || '%' OR lower(?) LIKE '%' || lower(name) || '%'
		 ORDER BY length(name) LIMIT 1`,
		name, name,
	)
	p, err := scanSQLitePlatform(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: find platform by name")
	}
	return p, nil
}

func scanSQLitePlatform(scan func(...any) error) (*model.Platform, error) {
	var p model.Platform
	var firmID, snapJSON sql.NullString
	var lastScraped sql.NullTime

	if err := scan(&p.ID, &p.Name, &p.Slug, &firmID, &p.BrandsPageURL, &p.IsActive, &snapJSON, &lastScraped); err != nil {
		return nil, err
	}
	p.FirmID = firmID.String
	if lastScraped.Valid {
		t := lastScraped.Time
		p.LastScrapedAt = &t
	}
	if snapJSON.Valid && snapJSON.String != "" {
		p.Snapshot = &model.BrandSnapshot{}
		if err := json.Unmarshal([]byte(snapJSON.String), p.Snapshot); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal brand snapshot")
		}
	}
	return &p, nil
}

func (s *SQLiteStore) SaveBrandSnapshot(ctx context.Context, platformID string, snap model.BrandSnapshot) error {
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal brand snapshot")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE platforms SET brand_snapshot = ?, last_scraped_at = ? WHERE id = ?`,
		string(snapJSON), snap.ScrapedAt, platformID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save brand snapshot %s", platformID)
	}
	return checkRowsAffected(res, "platform", platformID)
}

func (s *SQLiteStore) GetBrandBySlug(ctx context.Context, slug string) (*model.Brand, error) {
	var b model.Brand
	var firmID, platformID sql.NullString
	var acqDate sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, location, website, acquisition_date, acquisition_price, firm_id, platform_id, verification_source
		 FROM brands WHERE slug = ?`,
		slug,
	).Scan(&b.ID, &b.Name, &b.Slug, &b.Location, &b.Website, &acqDate, &b.AcquisitionPrice, &firmID, &platformID, &b.VerificationSource)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get brand by slug")
	}
	if acqDate.Valid {
		t := acqDate.Time
		b.AcquisitionDate = &t
	}
	b.FirmID = firmID.String
	b.PlatformID = platformID.String
	return &b, nil
}

func (s *SQLiteStore) CreateBrand(ctx context.Context, brand *model.Brand) error {
	if brand.ID == "" {
		brand.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO brands (id, name, slug, location, website, acquisition_date, acquisition_price, firm_id, platform_id, verification_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		brand.ID, brand.Name, brand.Slug, brand.Location, brand.Website,
		brand.AcquisitionDate, brand.AcquisitionPrice,
		nullable(brand.FirmID), nullable(brand.PlatformID), brand.VerificationSource,
	)
	return eris.Wrap(err, "sqlite: insert brand")
}

func (s *SQLiteStore) LinkBrand(ctx context.Context, brandID, firmID, platformID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE brands SET firm_id = COALESCE(firm_id, ?), platform_id = COALESCE(platform_id, ?) WHERE id = ?`,
		nullable(firmID), nullable(platformID), brandID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: link brand %s", brandID)
	}
	return checkRowsAffected(res, "brand", brandID)
}

func (s *SQLiteStore) GetAcquisitionByFirmBrand(ctx context.Context, firmID, brandID string) (*model.Acquisition, error) {
	var a model.Acquisition
	var platformID sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, date, amount, deal_type, source_url, source_title, notes, firm_id, platform_id, brand_id
		 FROM acquisitions WHERE firm_id = ? AND brand_id = ?`,
		firmID, brandID,
	).Scan(&a.ID, &a.Date, &a.Amount, &a.DealType, &a.SourceURL, &a.SourceTitle, &a.Notes, &a.FirmID, &platformID, &a.BrandID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get acquisition by firm and brand")
	}
	a.PlatformID = platformID.String
	return &a, nil
}

func (s *SQLiteStore) CreateAcquisition(ctx context.Context, acq *model.Acquisition) error {
	if acq.ID == "" {
		acq.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO acquisitions (id, date, amount, deal_type, source_url, source_title, notes, firm_id, platform_id, brand_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acq.ID, acq.Date, acq.Amount, acq.DealType, acq.SourceURL, acq.SourceTitle,
		acq.Notes, acq.FirmID, nullable(acq.PlatformID), acq.BrandID,
	)
	return eris.Wrap(err, "sqlite: insert acquisition")
}

func (s *SQLiteStore) ListAcquisitionRows(ctx context.Context, limit int) ([]AcquisitionRow, error) {
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.date, a.amount, a.deal_type, a.source_url, a.source_title, a.notes,
		        a.firm_id, a.platform_id, a.brand_id,
		        f.name, COALESCE(p.name, ''), b.name
		 FROM acquisitions a
		 JOIN firms f ON f.id = a.firm_id
		 LEFT JOIN platforms p ON p.id = a.platform_id
		 JOIN brands b ON b.id = a.brand_id
		 ORDER BY a.date DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list acquisition rows")
	}
	defer rows.Close()

	var result []AcquisitionRow
	for rows.Next() {
		var r AcquisitionRow
		var platformID sql.NullString
		if err := rows.Scan(&r.ID, &r.Date, &r.Amount, &r.DealType, &r.SourceURL, &r.SourceTitle, &r.Notes,
			&r.FirmID, &platformID, &r.BrandID, &r.FirmName, &r.PlatformName, &r.BrandName); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan acquisition row")
		}
		r.PlatformID = platformID.String
		result = append(result, r)
	}
	return result, eris.Wrap(rows.Err(), "sqlite: list acquisition rows iterate")
}

func (s *SQLiteStore) FindOrCreateSource(ctx context.Context, name, url string, sourceType model.SourceChannel) (*model.ScrapeSource, error) {
	id := uuid.New().String()

	var src model.ScrapeSource
	var platformID sql.NullString
	var lastScraped, lastSuccess sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO scrape_sources (id, name, url, source_type)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET url = excluded.url
		 RETURNING id, name, url, source_type, scrape_frequency_hours, is_active, platform_id, last_scraped_at, last_success_at, consecutive_failures`,
		id, name, url, string(sourceType),
	).Scan(&src.ID, &src.Name, &src.URL, &src.SourceType, &src.ScrapeFrequencyHours,
		&src.IsActive, &platformID, &lastScraped, &lastSuccess, &src.ConsecutiveFailures)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find or create source %s", name)
	}
	src.PlatformID = platformID.String
	if lastScraped.Valid {
		t := lastScraped.Time
		src.LastScrapedAt = &t
	}
	if lastSuccess.Valid {
		t := lastSuccess.Time
		src.LastSuccessAt = &t
	}
	return &src, nil
}

func (s *SQLiteStore) RecordSourceRun(ctx context.Context, sourceID string, success bool, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	if success {
		res, err = s.db.ExecContext(ctx,
			`UPDATE scrape_sources SET last_scraped_at = ?, last_success_at = ?, consecutive_failures = 0 WHERE id = ?`,
			at, at, sourceID,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE scrape_sources SET last_scraped_at = ?, consecutive_failures = consecutive_failures + 1 WHERE id = ?`,
			at, sourceID,
		)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: record source run %s", sourceID)
	}
	return checkRowsAffected(res, "scrape_source", sourceID)
}

func (s *SQLiteStore) CreateScrapeLog(ctx context.Context, entry *model.ScrapeLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_logs (id, source_id, started_at, completed_at, status, records_found, records_new, error_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SourceID, entry.StartedAt, entry.CompletedAt,
		entry.Status, entry.RecordsFound, entry.RecordsNew, entry.ErrorMessage,
	)
	return eris.Wrap(err, "sqlite: insert scrape log")
}

func (s *SQLiteStore) ListScrapeLogs(ctx context.Context, limit int) ([]model.ScrapeLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, started_at, completed_at, status, records_found, records_new, error_message
		 FROM scrape_logs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scrape logs")
	}
	defer rows.Close()

	var logs []model.ScrapeLog
	for rows.Next() {
		var l model.ScrapeLog
		if err := rows.Scan(&l.ID, &l.SourceID, &l.StartedAt, &l.CompletedAt, &l.Status, &l.RecordsFound, &l.RecordsNew, &l.ErrorMessage); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scrape log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list scrape logs iterate")
}
