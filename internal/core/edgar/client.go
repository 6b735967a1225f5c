package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

const (
	DefaultDataBaseURL     = "https://data.sec.gov"
	DefaultArchivesBaseURL = "https://www.sec.gov/Archives/edgar/data"
	DefaultTickersURL      = "https://www.sec.gov/files/company_tickers.json"

	DefaultTimeout = 30 * time.Second

	// SEC fair-access policy allows 10 requests per second.
	DefaultRateLimit = 8
)

// Client talks to the EDGAR submissions, archives, and company directory feeds.
type Client struct {
	dataBaseURL     string
	archivesBaseURL string
	tickersURL      string
	userAgent       string
	httpClient      *http.Client
	limiter         *rate.Limiter
	cache           IndexCache
	cacheTTL        time.Duration
	log             *logger.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

func WithDataBaseURL(u string) ClientOption {
	return func(c *Client) { c.dataBaseURL = strings.TrimRight(u, "/") }
}

func WithArchivesBaseURL(u string) ClientOption {
	return func(c *Client) { c.archivesBaseURL = strings.TrimRight(u, "/") }
}

func WithTickersURL(u string) ClientOption {
	return func(c *Client) { c.tickersURL = u }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit sets requests per second; zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithIndexCache caches submissions payloads for ttl.
func WithIndexCache(cache IndexCache, ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates an EDGAR client. userAgent is sent on every request as
// the SEC requires a declared contact.
func NewClient(userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		dataBaseURL:     DefaultDataBaseURL,
		archivesBaseURL: DefaultArchivesBaseURL,
		tickersURL:      DefaultTickersURL,
		userAgent:       userAgent,
		httpClient:      &http.Client{Timeout: DefaultTimeout},
		limiter:         rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("client", "edgar")
	return c
}

// get performs a rate-limited GET and returns the body with the status code.
func (c *Client) get(ctx context.Context, op, rawURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, core.NewError(op, core.KindFetchFailed, "rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, core.NewError(op, core.KindInvalidInput, "build request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("EDGAR request", "op", op, "url", rawURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, core.NewError(op, core.KindFetchFailed, rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, core.NewError(op, core.KindFetchFailed, "read body", err)
	}
	return body, resp.StatusCode, nil
}

// FetchFilingIndex returns the submissions feed for a company.
// A company with no feed yields a not_found error.
func (c *Client) FetchFilingIndex(ctx context.Context, cik string) (*FilingIndex, error) {
	const op = "edgar.fetch_filing_index"

	key, err := NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}
	cacheKey := "edgar:submissions:" + key

	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, cacheKey)
		if err != nil {
			c.log.Warn("filing index cache read failed", "company_key", key, "error", err)
		} else if ok {
			var idx FilingIndex
			if err := json.Unmarshal(raw, &idx); err == nil {
				return &idx, nil
			}
			c.log.Warn("discarding undecodable cached filing index", "company_key", key)
		}
	}

	endpoint := fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBaseURL, key)
	body, status, err := c.get(ctx, op, endpoint)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, core.NewError(op, core.KindNotFound, fmt.Sprintf("no filing index for company %s", key), nil)
	case status != http.StatusOK:
		return nil, core.FetchFailed(op, status, endpoint)
	}

	var idx FilingIndex
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, core.NewError(op, core.KindFetchFailed, "decode submissions", err)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, body, c.cacheTTL); err != nil {
			c.log.Warn("filing index cache write failed", "company_key", key, "error", err)
		}
	}
	return &idx, nil
}

// LocateLatest returns one location per tracked form type that has a filing.
func (c *Client) LocateLatest(ctx context.Context, cik string, forms []models.FormType) ([]models.FilingLocation, error) {
	key, err := NormalizeCIK(cik)
	if err != nil {
		return nil, err
	}
	idx, err := c.FetchFilingIndex(ctx, key)
	if err != nil {
		return nil, err
	}
	return SelectLatest(idx, key, forms), nil
}

// SelectLatest picks, per form type, the entry at the lowest position of the
// recent arrays. The feed is ordered newest first in practice, so the lowest
// position is the most recent filing. Positions past the shortest of the
// form/accession/document arrays are ignored. Forms without a match are omitted.
func SelectLatest(idx *FilingIndex, companyKey string, forms []models.FormType) []models.FilingLocation {
	if idx == nil {
		return nil
	}
	recent := idx.Filings.Recent
	n := min(len(recent.Form), len(recent.AccessionNumber), len(recent.PrimaryDocument))

	firstAt := make(map[string]int, len(forms))
	for i := 0; i < n; i++ {
		if _, seen := firstAt[recent.Form[i]]; !seen {
			firstAt[recent.Form[i]] = i
		}
	}

	out := make([]models.FilingLocation, 0, len(forms))
	done := make(map[models.FormType]bool, len(forms))
	for _, form := range forms {
		if done[form] {
			continue
		}
		done[form] = true

		i, ok := firstAt[string(form)]
		if !ok {
			continue
		}
		loc := models.FilingLocation{
			CompanyKey:   companyKey,
			FormType:     form,
			AccessionID:  recent.AccessionNumber[i],
			DocumentName: recent.PrimaryDocument[i],
		}
		if i < len(recent.FilingDate) {
			loc.FilingDate = recent.FilingDate[i]
		}
		out = append(out, loc)
	}
	return out
}

// DocumentURL builds the archives URL for a location:
// {base}/{cik}/{accession without dashes}/{document}.
func (c *Client) DocumentURL(loc models.FilingLocation) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		c.archivesBaseURL,
		archiveCIK(loc.CompanyKey),
		strings.ReplaceAll(loc.AccessionID, "-", ""),
		url.PathEscape(loc.DocumentName),
	)
}

// Fetch performs a single GET for the document. Anything but 200 is a
// fetch_failed error carrying the status code. There is no retry.
func (c *Client) Fetch(ctx context.Context, loc models.FilingLocation) (string, error) {
	const op = "edgar.fetch_document"

	endpoint := c.DocumentURL(loc)
	body, status, err := c.get(ctx, op, endpoint)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", core.FetchFailed(op, status, fmt.Sprintf("failed to fetch document %s", endpoint))
	}
	return string(body), nil
}

// FetchCompanyDirectory downloads company_tickers.json, ordered by its numeric keys.
func (c *Client) FetchCompanyDirectory(ctx context.Context) ([]models.CompanyRecord, error) {
	const op = "edgar.fetch_company_directory"

	body, status, err := c.get(ctx, op, c.tickersURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, core.FetchFailed(op, status, c.tickersURL)
	}

	var raw map[string]tickerEntry
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, core.NewError(op, core.KindFetchFailed, "decode company tickers", err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})

	out := make([]models.CompanyRecord, 0, len(keys))
	for _, k := range keys {
		e := raw[k]
		if e.CIK <= 0 || strings.TrimSpace(e.Ticker) == "" {
			continue
		}
		out = append(out, models.CompanyRecord{
			CompanyKey:  FormatCIK(e.CIK),
			Ticker:      strings.ToUpper(strings.TrimSpace(e.Ticker)),
			DisplayName: strings.TrimSpace(e.Title),
		})
	}
	return out, nil
}
