package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/filingscope/internal/models"
)

// FilingLocator finds the latest filing per tracked form for a company.
type FilingLocator interface {
	LocateLatest(ctx context.Context, companyKey string, forms []models.FormType) ([]models.FilingLocation, error)
}

// DocumentFetcher retrieves one filing document body.
type DocumentFetcher interface {
	Fetch(ctx context.Context, loc models.FilingLocation) (string, error)
}

type Ingestor interface {
	Ingest(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (*IngestReport, error)
	IngestCompany(ctx context.Context, companyKey string, forms []models.FormType, overwrite bool) (int, error)
}
