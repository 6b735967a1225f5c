package edgar

import (
	"context"
	"time"
)

// FilingIndex is the subset of the submissions feed the locator reads.
// The recent block is a set of parallel arrays indexed by position.
type FilingIndex struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent RecentFilings `json:"recent"`
	} `json:"filings"`
}

type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// tickerEntry is one value of the company_tickers.json object.
type tickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// IndexCache stores raw submissions payloads keyed by CIK.
// A miss is reported as (nil, false, nil).
type IndexCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
