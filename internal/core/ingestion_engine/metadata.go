package ingestion_engine

import (
	"context"
	"time"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
)

// DedupGate reports whether a document was already ingested. Read only.
type DedupGate struct {
	store core.MetadataStore
}

func NewDedupGate(store core.MetadataStore) *DedupGate {
	return &DedupGate{store: store}
}

// AlreadyIngested matches on (company_key, accession_id, form_type).
func (g *DedupGate) AlreadyIngested(ctx context.Context, loc models.FilingLocation) (bool, error) {
	ok, err := g.store.DocumentExists(ctx, loc.CompanyKey, loc.AccessionID, loc.FormType)
	if err != nil {
		if core.KindOf(err) == "" {
			err = core.NewError("dedup.already_ingested", core.KindPersistenceFailed, "", err)
		}
		return false, err
	}
	return ok, nil
}

// MetadataRecorder writes the provenance row that chunks point back to.
type MetadataRecorder struct {
	store core.MetadataStore
}

func NewMetadataRecorder(store core.MetadataStore) *MetadataRecorder {
	return &MetadataRecorder{store: store}
}

// Record inserts one row and returns its id. Store errors other than
// duplicate are reported as persistence_failed.
func (r *MetadataRecorder) Record(ctx context.Context, loc models.FilingLocation, at time.Time) (int64, error) {
	rec := &models.DocumentMetadataRecord{
		CompanyKey:      loc.CompanyKey,
		AccessionID:     loc.AccessionID,
		FormType:        loc.FormType,
		PrimaryDocument: loc.DocumentName,
		IngestedAt:      at,
	}
	id, err := r.store.RecordDocument(ctx, rec)
	if err != nil {
		if k := core.KindOf(err); k != core.KindDuplicate && k != core.KindPersistenceFailed {
			err = core.NewError("metadata.record", core.KindPersistenceFailed, "", err)
		}
		return 0, err
	}
	return id, nil
}
