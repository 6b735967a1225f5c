package models

import (
	"time"
)

// FormType is a filing's regulatory category as it appears in the EDGAR feed.
type FormType string

const (
	Form10K FormType = "10-K"
	Form10Q FormType = "10-Q"
	Form8K  FormType = "8-K"
	Form8KA FormType = "8-K/A"
)

// DefaultTrackedForms is the set of forms ingested when a caller does not choose.
var DefaultTrackedForms = []FormType{Form8K, Form8KA, Form10K, Form10Q}

// FilingLocation identifies one filing document without its text.
type FilingLocation struct {
	CompanyKey   string   `json:"company_key"`
	FormType     FormType `json:"form_type"`
	AccessionID  string   `json:"accession_id"`
	DocumentName string   `json:"document_name"`
	FilingDate   string   `json:"filing_date,omitempty"`
}

// FetchedDocument only lives between the fetcher and the chunker.
type FetchedDocument struct {
	Location FilingLocation
	RawText  string
}

// DocumentMetadataRecord is the provenance row written once per ingested document.
type DocumentMetadataRecord struct {
	ID              int64     `db:"id" json:"id"`
	CompanyKey      string    `db:"company_key" json:"company_key"`
	AccessionID     string    `db:"accession_id" json:"accession_id"`
	FormType        FormType  `db:"form_type" json:"form_type"`
	PrimaryDocument string    `db:"primary_document" json:"primary_document"`
	Revision        int       `db:"revision" json:"revision"`
	IngestedAt      time.Time `db:"ingested_at" json:"ingested_at"`
}

// EmbeddedChunk is one embedded piece of a document as stored in the vector index.
type EmbeddedChunk struct {
	ID        string         `db:"id" json:"id"`
	Text      string         `db:"content" json:"text"`
	Vector    []float32      `db:"embedding" json:"-"`
	Position  int            `db:"position" json:"position"`
	Metadata  map[string]any `db:"metadata" json:"metadata"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// ScoredChunk is a similarity search hit; higher Score is more similar.
type ScoredChunk struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Score    float64        `json:"score"`
}

// CompanyRecord comes from the upstream company directory feed.
type CompanyRecord struct {
	CompanyKey  string `db:"company_key" json:"company_key"`
	Ticker      string `db:"ticker" json:"ticker"`
	DisplayName string `db:"display_name" json:"display_name"`
}

// Bond is one row of the bond finder listing.
type Bond struct {
	Issuer       string `json:"issuer"`
	URL          string `json:"url"`
	ISIN         string `json:"isin"`
	Currency     string `json:"currency"`
	Coupon       string `json:"coupon"`
	Yield        string `json:"yield"`
	MoodysRating string `json:"moodys_rating"`
	MaturityDate string `json:"maturity_date"`
	Bid          string `json:"bid"`
	Ask          string `json:"ask"`
}

// BondListing pairs a bond with the company its issuer name resolved to, if any.
type BondListing struct {
	Bond    Bond           `json:"bond"`
	Company *CompanyRecord `json:"company,omitempty"`
}
