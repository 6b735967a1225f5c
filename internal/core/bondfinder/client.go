package bondfinder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

const (
	DefaultFinderURL = "https://markets.businessinsider.com/bonds/finder"
	DefaultMaxPages  = 5
	DefaultRateLimit = 2
	DefaultCountry   = "18"
	defaultFanOut    = 4
)

// Client scrapes the bond finder result table.
type Client struct {
	finderURL  string
	siteURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxPages   int
	fanOut     int
	log        *logger.Logger
}

type ClientOption func(*Client)

func WithFinderURL(u string) ClientOption {
	return func(c *Client) { c.finderURL = u }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithMaxPages(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
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

func WithFanOut(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.fanOut = n
		}
	}
}

func WithLogger(log *logger.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		finderURL:  DefaultFinderURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxPages:   DefaultMaxPages,
		fanOut:     defaultFanOut,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.siteURL = siteRoot(c.finderURL)
	c.log = c.log.With("client", "bondfinder")
	return c
}

// siteRoot is the scheme and host that relative row links resolve against.
func siteRoot(finderURL string) string {
	u, err := url.Parse(finderURL)
	if err != nil || u.Host == "" {
		return "https://markets.businessinsider.com"
	}
	return u.Scheme + "://" + u.Host
}

func (c *Client) pageURL(rating MoodyRating, maturity Maturity, yield YieldBand, page int) string {
	q := url.Values{}
	q.Set("borrower", "")
	q.Set("maturity", string(maturity))
	q.Set("yield", string(yield))
	q.Set("bondtype", "")
	q.Set("coupon", "")
	q.Set("currency", "")
	q.Set("MoodyRating", strconv.Itoa(int(rating)))
	q.Set("country", DefaultCountry)
	q.Set("p", strconv.Itoa(page))
	return c.finderURL + "?" + q.Encode()
}

// FindBonds walks result pages 1..maxPages for one criteria combination and
// stops at the first page with no rows. A non-200 page is logged and ends the
// walk with what was collected so far.
func (c *Client) FindBonds(ctx context.Context, rating MoodyRating, maturity Maturity, yield YieldBand) ([]models.Bond, error) {
	log := c.log.With("rating", rating.String(), "maturity", maturity, "yield", yield)

	var all []models.Bond
	for page := 1; page <= c.maxPages; page++ {
		endpoint := c.pageURL(rating, maturity, yield, page)
		body, status, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		if status != http.StatusOK {
			log.Warn("bond finder page failed", "page", page, "status", status)
			break
		}

		bonds, err := ParseBondTable(body, c.siteURL)
		if err != nil {
			return nil, core.NewError("bondfinder.find_bonds", core.KindFetchFailed, "parse page", err)
		}
		log.Debug("bond finder page parsed", "page", page, "rows", len(bonds))
		if len(bonds) == 0 {
			break
		}
		all = append(all, bonds...)
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	const op = "bondfinder.get"
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, core.NewError(op, core.KindFetchFailed, "rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, core.NewError(op, core.KindInvalidInput, "build request", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, core.NewError(op, core.KindFetchFailed, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, core.NewError(op, core.KindFetchFailed, "read body", err)
	}
	return body, resp.StatusCode, nil
}

// FindWithinCriteria searches every rating/maturity/yield combination
// concurrently and returns the union, deduplicated by ISIN and sorted by
// issuer then ISIN.
func (c *Client) FindWithinCriteria(ctx context.Context, ratings []MoodyRating, maturities []Maturity, yields []YieldBand) ([]models.Bond, error) {
	var (
		mu   sync.Mutex
		seen = map[string]models.Bond{}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.fanOut)
	for _, r := range ratings {
		for _, m := range maturities {
			for _, y := range yields {
				r, m, y := r, m, y
				g.Go(func() error {
					bonds, err := c.FindBonds(gctx, r, m, y)
					if err != nil {
						return fmt.Errorf("find bonds %s/%s/%s: %w", r, m, y, err)
					}
					mu.Lock()
					defer mu.Unlock()
					for _, b := range bonds {
						key := b.ISIN
						if key == "" {
							key = b.URL
						}
						if _, ok := seen[key]; !ok {
							seen[key] = b
						}
					}
					return nil
				})
			}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Bond, 0, len(seen))
	for _, b := range seen {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Issuer != out[j].Issuer {
			return out[i].Issuer < out[j].Issuer
		}
		return out[i].ISIN < out[j].ISIN
	})
	return out, nil
}

// ParseBondTable extracts bonds from the first table.table of a finder page.
// Header rows and rows missing a link or columns are skipped. A page that
// says "No results found" yields no bonds.
func ParseBondTable(html []byte, siteURL string) ([]models.Bond, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, err
	}

	table := doc.Find("table.table").First()
	if table.Length() == 0 {
		return nil, nil
	}
	if strings.Contains(doc.Text(), "No results found") {
		return nil, nil
	}

	var bonds []models.Bond
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			return
		}
		cols := row.Find("td")
		if cols.Length() < 8 {
			return
		}
		href, ok := cols.Eq(0).Find("a").Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		link := strings.TrimSpace(href)
		if strings.HasPrefix(link, "/") {
			link = strings.TrimRight(siteURL, "/") + link
		}
		cell := func(i int) string { return strings.TrimSpace(cols.Eq(i).Text()) }

		bonds = append(bonds, models.Bond{
			Issuer:       firstLine(cell(0)),
			URL:          link,
			ISIN:         isinFromURL(link),
			Currency:     cell(1),
			Coupon:       cell(2),
			Yield:        cell(3),
			MoodysRating: cell(4),
			MaturityDate: cell(5),
			Bid:          cell(6),
			Ask:          cell(7),
		})
	})
	return bonds, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// isinFromURL takes the suffix after the last '-' of the bond page path.
func isinFromURL(link string) string {
	if u, err := url.Parse(link); err == nil {
		link = u.Path
	}
	i := strings.LastIndex(link, "-")
	if i < 0 || i == len(link)-1 {
		return ""
	}
	return strings.ToUpper(link[i+1:])
}
