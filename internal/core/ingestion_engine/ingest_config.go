package ingestion_engine

import (
	"time"

	"github.com/markdave123-py/filingscope/internal/models"
)

// IngestConfig tunes the ingestion pipeline.
//
// ChunkSize:     maximum runes per chunk (default 1500).
// ChunkOverlap:  runes of trailing context repeated at the start of the next chunk (default 150).
// BatchSize:     chunks embedded per provider call.
// EmbedDim:      expected vector dimension; 0 skips the check.
// EmbedTimeout:  deadline for a single embedding batch.
// Concurrency:   documents processed at once within one company ingestion.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	EmbedDim     int
	EmbedTimeout time.Duration
	Concurrency  int
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		ChunkSize:    1500,
		ChunkOverlap: 150,
		BatchSize:    16,
		EmbedDim:     768,
		EmbedTimeout: 60 * time.Second,
		Concurrency:  4,
	}
}

// withDefaults fills zero values from DefaultIngestConfig.
func (c *IngestConfig) withDefaults() *IngestConfig {
	d := DefaultIngestConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.ChunkSize <= 0 {
		out.ChunkSize = d.ChunkSize
	}
	if out.ChunkOverlap < 0 || out.ChunkOverlap >= out.ChunkSize {
		out.ChunkOverlap = min(d.ChunkOverlap, out.ChunkSize/10)
	}
	if out.BatchSize <= 0 {
		out.BatchSize = d.BatchSize
	}
	if out.EmbedTimeout <= 0 {
		out.EmbedTimeout = d.EmbedTimeout
	}
	if out.Concurrency <= 0 {
		out.Concurrency = 1
	}
	return &out
}

// DocumentState is where a document ended up in a single ingestion run.
type DocumentState string

const (
	StateLocated          DocumentState = "located"
	StateFetched          DocumentState = "fetched"
	StateMetadataRecorded DocumentState = "metadata_recorded"
	StateEmbedded         DocumentState = "embedded"
	StateSkipped          DocumentState = "skipped"
	StateFailed           DocumentState = "failed"
)

// DocumentOutcome is the per-document result of an ingestion run.
type DocumentOutcome struct {
	Location   models.FilingLocation `json:"location"`
	State      DocumentState         `json:"state"`
	RecordID   int64                 `json:"record_id,omitempty"`
	ChunkCount int                   `json:"chunk_count"`
	Error      string                `json:"error,omitempty"`
}

// IngestReport summarizes one company ingestion. Ingested counts documents
// that reached StateEmbedded.
type IngestReport struct {
	CompanyKey string            `json:"company_key"`
	Overwrite  bool              `json:"overwrite"`
	Ingested   int               `json:"ingested"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	Documents  []DocumentOutcome `json:"documents"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

func (r *IngestReport) tally() {
	r.Ingested, r.Skipped, r.Failed = 0, 0, 0
	for _, d := range r.Documents {
		switch d.State {
		case StateEmbedded:
			r.Ingested++
		case StateSkipped:
			r.Skipped++
		case StateFailed:
			r.Failed++
		}
	}
}
