package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

// MaxCandidates bounds the candidates reported for an ambiguous name.
const MaxCandidates = 10

// DirectoryFeed is the upstream company directory.
type DirectoryFeed interface {
	FetchCompanyDirectory(ctx context.Context) ([]models.CompanyRecord, error)
}

// AmbiguousCompanyError lists the companies a name fragment matched.
type AmbiguousCompanyError struct {
	Name       string
	Candidates []models.CompanyRecord
}

func (e *AmbiguousCompanyError) Error() string {
	return fmt.Sprintf("%q matches %d companies", e.Name, len(e.Candidates))
}

type CompanyService struct {
	store core.CompanyStore
	feed  DirectoryFeed
	log   *logger.Logger
}

func NewCompanyService(store core.CompanyStore, feed DirectoryFeed, log *logger.Logger) *CompanyService {
	if log == nil {
		log = logger.Nop()
	}
	return &CompanyService{store: store, feed: feed, log: log.With("service", "companies")}
}

// ImportDirectory downloads the company directory and upserts it.
func (s *CompanyService) ImportDirectory(ctx context.Context) (int, error) {
	companies, err := s.feed.FetchCompanyDirectory(ctx)
	if err != nil {
		return 0, err
	}
	n, err := s.store.UpsertCompanies(ctx, companies)
	if err != nil {
		return 0, err
	}
	s.log.Info("company directory imported", "companies", n)
	return n, nil
}

// Resolve maps a human-entered name to one company. An exact title or ticker
// match wins. Otherwise the name is matched as a case-insensitive substring
// of titles: no match is not_found, several distinct companies is ambiguous.
func (s *CompanyService) Resolve(ctx context.Context, name string) (*models.CompanyRecord, error) {
	const op = "companies.resolve"
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.NewError(op, core.KindInvalidInput, "company name is empty", nil)
	}

	exact, err := s.store.GetCompanyExact(ctx, name)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return exact, nil
	}

	matches, err := s.store.SearchCompanies(ctx, name, MaxCandidates)
	if err != nil {
		return nil, err
	}

	// share classes list the same company under several tickers
	var distinct []models.CompanyRecord
	seen := map[string]bool{}
	for _, m := range matches {
		if seen[m.CompanyKey] {
			continue
		}
		seen[m.CompanyKey] = true
		distinct = append(distinct, m)
	}

	switch len(distinct) {
	case 0:
		return nil, core.NewError(op, core.KindNotFound, fmt.Sprintf("no company matches %q", name), nil)
	case 1:
		return &distinct[0], nil
	}
	if len(distinct) > MaxCandidates {
		distinct = distinct[:MaxCandidates]
	}
	return nil, core.NewError(op, core.KindAmbiguous, "",
		&AmbiguousCompanyError{Name: name, Candidates: distinct})
}

// MatchIssuer finds the company whose normalized title equals the normalized
// issuer name. Returns nil when there is none.
func (s *CompanyService) MatchIssuer(ctx context.Context, issuer string) (*models.CompanyRecord, error) {
	normalized := core.NormalizeCompanyName(issuer)
	if normalized == "" {
		return nil, nil
	}
	return s.store.GetCompanyByNormalizedName(ctx, normalized)
}
