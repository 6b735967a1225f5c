package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/filingscope/internal/config"
	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
)

const uniqueViolation = "23505"

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := BuildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// persistErr classifies a store error. Unique violations become duplicate so
// callers can tell a lost insert race from a broken store.
func persistErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return core.NewError(op, core.KindDuplicate, pgErr.ConstraintName, err)
	}
	return core.NewError(op, core.KindPersistenceFailed, "", err)
}

// Document metadata

// RecordDocument inserts a provenance row and returns its id. The revision is
// one past the highest existing revision of the same document, computed in the
// insert itself so the unique constraint arbitrates concurrent writers.
func (c *DatabaseClient) RecordDocument(ctx context.Context, rec *models.DocumentMetadataRecord) (int64, error) {
	const op = "db.record_document"
	if rec == nil {
		return 0, core.NewError(op, core.KindPrecondition, "nil record", nil)
	}
	if rec.IngestedAt.IsZero() {
		rec.IngestedAt = time.Now().UTC()
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, persistErr(op, err)
	}

	const q = `
		INSERT INTO document_metadata
			(company_key, accession_id, form_type, primary_document, revision, ingested_at)
		SELECT $1::text, $2::text, $3::text, $4::text, COALESCE(MAX(revision), 0) + 1, $5::timestamptz
		FROM document_metadata
		WHERE company_key = $1 AND accession_id = $2 AND form_type = $3
		RETURNING id, revision
	`
	var (
		id       int64
		revision int
	)
	err = tx.QueryRowContext(ctx, q,
		rec.CompanyKey, rec.AccessionID, string(rec.FormType), rec.PrimaryDocument, rec.IngestedAt,
	).Scan(&id, &revision)
	if err != nil {
		_ = tx.Rollback()
		return 0, persistErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, persistErr(op, err)
	}

	rec.ID = id
	rec.Revision = revision
	return id, nil
}

func (c *DatabaseClient) DocumentExists(ctx context.Context, companyKey, accessionID string, form models.FormType) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM document_metadata
			WHERE company_key = $1 AND accession_id = $2 AND form_type = $3
		)
	`
	var exists bool
	if err := c.db.QueryRowContext(ctx, q, companyKey, accessionID, string(form)).Scan(&exists); err != nil {
		return false, persistErr("db.document_exists", err)
	}
	return exists, nil
}

func (c *DatabaseClient) ListDocuments(ctx context.Context, companyKey string) ([]models.DocumentMetadataRecord, error) {
	const q = `
		SELECT id, company_key, accession_id, form_type, primary_document, revision, ingested_at
		FROM document_metadata
		WHERE company_key = $1
		ORDER BY ingested_at DESC, id DESC
	`
	rows, err := c.db.QueryContext(ctx, q, companyKey)
	if err != nil {
		return nil, persistErr("db.list_documents", err)
	}
	defer rows.Close()

	var out []models.DocumentMetadataRecord
	for rows.Next() {
		var (
			d    models.DocumentMetadataRecord
			form string
		)
		if err := rows.Scan(&d.ID, &d.CompanyKey, &d.AccessionID, &form, &d.PrimaryDocument, &d.Revision, &d.IngestedAt); err != nil {
			return nil, persistErr("db.list_documents", err)
		}
		d.FormType = models.FormType(form)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("db.list_documents", err)
	}
	return out, nil
}

// Companies

// UpsertCompanies writes the directory keyed by ticker in a single transaction.
func (c *DatabaseClient) UpsertCompanies(ctx context.Context, companies []models.CompanyRecord) (int, error) {
	const op = "db.upsert_companies"
	if len(companies) == 0 {
		return 0, nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, persistErr(op, err)
	}

	const q = `
		INSERT INTO companies (ticker, company_key, display_name, normalized_name, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (ticker) DO UPDATE
		SET company_key = EXCLUDED.company_key,
		    display_name = EXCLUDED.display_name,
		    normalized_name = EXCLUDED.normalized_name,
		    updated_at = now()
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return 0, persistErr(op, err)
	}
	defer stmt.Close()

	for _, co := range companies {
		if _, err := stmt.ExecContext(ctx,
			co.Ticker, co.CompanyKey, co.DisplayName, core.NormalizeCompanyName(co.DisplayName),
		); err != nil {
			_ = tx.Rollback()
			return 0, persistErr(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, persistErr(op, err)
	}
	return len(companies), nil
}

// GetCompanyExact matches a display name case-insensitively or a ticker exactly.
// A ticker match is preferred. Returns nil when nothing matches.
func (c *DatabaseClient) GetCompanyExact(ctx context.Context, name string) (*models.CompanyRecord, error) {
	const q = `
		SELECT company_key, ticker, display_name
		FROM companies
		WHERE upper(ticker) = upper($1) OR lower(display_name) = lower($1)
		ORDER BY (upper(ticker) = upper($1)) DESC, ticker
		LIMIT 1
	`
	return c.getCompany(ctx, "db.get_company_exact", q, strings.TrimSpace(name))
}

func (c *DatabaseClient) GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.CompanyRecord, error) {
	const q = `
		SELECT company_key, ticker, display_name
		FROM companies
		WHERE normalized_name = $1
		ORDER BY company_key, ticker
		LIMIT 1
	`
	return c.getCompany(ctx, "db.get_company_by_normalized_name", q, normalized)
}

func (c *DatabaseClient) getCompany(ctx context.Context, op, q string, arg string) (*models.CompanyRecord, error) {
	var co models.CompanyRecord
	err := c.db.QueryRowContext(ctx, q, arg).Scan(&co.CompanyKey, &co.Ticker, &co.DisplayName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr(op, err)
	}
	return &co, nil
}

// SearchCompanies returns up to limit distinct companies whose display name
// contains fragment, case-insensitively, ordered by name. A company listed
// under several tickers appears once, with its shortest ticker.
func (c *DatabaseClient) SearchCompanies(ctx context.Context, fragment string, limit int) ([]models.CompanyRecord, error) {
	const op = "db.search_companies"
	const q = `
		SELECT company_key, ticker, display_name
		FROM (
			SELECT DISTINCT ON (company_key) company_key, ticker, display_name
			FROM companies
			WHERE display_name ILIKE '%' || $1::text || '%'
			ORDER BY company_key, length(ticker), ticker
		) d
		ORDER BY display_name, ticker
		LIMIT $2
	`
	if limit <= 0 {
		limit = 10
	}
	rows, err := c.db.QueryContext(ctx, q, escapeLike(strings.TrimSpace(fragment)), limit)
	if err != nil {
		return nil, persistErr(op, err)
	}
	defer rows.Close()

	var out []models.CompanyRecord
	for rows.Next() {
		var co models.CompanyRecord
		if err := rows.Scan(&co.CompanyKey, &co.Ticker, &co.DisplayName); err != nil {
			return nil, persistErr(op, err)
		}
		out = append(out, co)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}
	return out, nil
}

// Chunks

// AddChunks inserts chunks in a single transaction; either all are visible or none.
func (c *DatabaseClient) AddChunks(ctx context.Context, chunks []models.EmbeddedChunk) error {
	const op = "db.add_chunks"
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return persistErr(op, err)
	}

	const q = `
		INSERT INTO filing_chunks
			(id, document_metadata_id, company_key, position, content, metadata, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, COALESCE($8, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return persistErr(op, err)
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]

		md, err := json.Marshal(ch.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return core.NewError(op, core.KindInvalidInput, "encode chunk metadata", err)
		}

		var docID sql.NullInt64
		if id, ok := metadataInt64(ch.Metadata, "document_metadata_id"); ok {
			docID = sql.NullInt64{Int64: id, Valid: true}
		}
		var companyKey sql.NullString
		if key, ok := metadataString(ch.Metadata, "company_key"); ok {
			companyKey = sql.NullString{String: key, Valid: true}
		}
		var createdAt sql.NullTime
		if !ch.CreatedAt.IsZero() {
			createdAt = sql.NullTime{Time: ch.CreatedAt, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, docID, companyKey, ch.Position, ch.Text, string(md), pgvector.NewVector(ch.Vector), createdAt,
		); err != nil {
			_ = tx.Rollback()
			return persistErr(op, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return persistErr(op, err)
	}
	return nil
}

// An HNSW scan applies WHERE after it has collected hnsw.ef_search neighbours,
// so a filtered search must select its candidates before ranking them.
const (
	searchAllSQL = `
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM filing_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	searchFilteredSQL = `
		WITH candidates AS MATERIALIZED (
			SELECT content, metadata, embedding
			FROM filing_chunks
			WHERE metadata @> $2::jsonb
		)
		SELECT content, metadata, 1 - (embedding <=> $1) AS score
		FROM candidates
		ORDER BY embedding <=> $1
		LIMIT $3
	`
)

// SimilaritySearch ranks chunks whose metadata contains filter by cosine
// similarity to vec. Score is 1 - cosine distance, highest first. Unfiltered
// searches use the vector index; filtered ones rank every matching chunk.
func (c *DatabaseClient) SimilaritySearch(ctx context.Context, vec []float32, filter map[string]any, k int) ([]models.ScoredChunk, error) {
	const op = "db.similarity_search"
	if k <= 0 {
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if len(filter) == 0 {
		rows, err = c.db.QueryContext(ctx, searchAllSQL, pgvector.NewVector(vec), k)
	} else {
		filterJSON, encErr := encodeFilter(filter)
		if encErr != nil {
			return nil, core.NewError(op, core.KindInvalidInput, "encode filter", encErr)
		}
		rows, err = c.db.QueryContext(ctx, searchFilteredSQL, pgvector.NewVector(vec), filterJSON, k)
	}
	if err != nil {
		return nil, persistErr(op, err)
	}
	defer rows.Close()

	var out []models.ScoredChunk
	for rows.Next() {
		var (
			sc models.ScoredChunk
			md []byte
		)
		if err := rows.Scan(&sc.Text, &md, &sc.Score); err != nil {
			return nil, persistErr(op, err)
		}
		if sc.Metadata, err = decodeMetadata(md); err != nil {
			return nil, persistErr(op, err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr(op, err)
	}
	return out, nil
}
