package core

import (
	"context"
	"io"

	"github.com/markdave123-py/filingscope/internal/models"
)

// MetadataStore persists one provenance record per ingested document.
type MetadataStore interface {
	RecordDocument(ctx context.Context, rec *models.DocumentMetadataRecord) (int64, error)
	DocumentExists(ctx context.Context, companyKey, accessionID string, form models.FormType) (bool, error)
	ListDocuments(ctx context.Context, companyKey string) ([]models.DocumentMetadataRecord, error)
}

// CompanyStore holds the imported company directory.
type CompanyStore interface {
	UpsertCompanies(ctx context.Context, companies []models.CompanyRecord) (int, error)
	GetCompanyExact(ctx context.Context, name string) (*models.CompanyRecord, error)
	// SearchCompanies returns at most limit distinct companies (by company key).
	SearchCompanies(ctx context.Context, fragment string, limit int) ([]models.CompanyRecord, error)
	GetCompanyByNormalizedName(ctx context.Context, normalized string) (*models.CompanyRecord, error)
}

// VectorIndex stores embedded chunks and answers metadata-filtered similarity queries.
type VectorIndex interface {
	AddChunks(ctx context.Context, chunks []models.EmbeddedChunk) error
	SimilaritySearch(ctx context.Context, vec []float32, filter map[string]any, k int) ([]models.ScoredChunk, error)
}

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	MetadataStore
	CompanyStore
	VectorIndex

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
