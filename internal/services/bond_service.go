package services

import (
	"context"

	"github.com/markdave123-py/filingscope/internal/core"
	"github.com/markdave123-py/filingscope/internal/core/bondfinder"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/platform/logger"
)

// BondSource searches bond listings over criteria combinations.
type BondSource interface {
	FindWithinCriteria(ctx context.Context, ratings []bondfinder.MoodyRating, maturities []bondfinder.Maturity, yields []bondfinder.YieldBand) ([]models.Bond, error)
}

// BondCriteria selects listings. Zero values mean Baa3 and weaker, every
// maturity, and every yield band.
type BondCriteria struct {
	MinRating  bondfinder.MoodyRating
	Maturities []bondfinder.Maturity
	Yields     []bondfinder.YieldBand
}

type BondService struct {
	source    BondSource
	companies *CompanyService
	log       *logger.Logger
}

func NewBondService(source BondSource, companies *CompanyService, log *logger.Logger) *BondService {
	if log == nil {
		log = logger.Nop()
	}
	return &BondService{source: source, companies: companies, log: log.With("service", "bonds")}
}

// FindBonds returns listings matching criteria, each linked to the company
// its issuer name resolves to when there is one.
func (s *BondService) FindBonds(ctx context.Context, criteria BondCriteria) ([]models.BondListing, error) {
	floor := criteria.MinRating
	if floor == 0 {
		floor = bondfinder.Baa3
	}
	if !floor.Valid() {
		return nil, core.NewError("bonds.find", core.KindInvalidInput, "invalid minimum rating", nil)
	}
	maturities := criteria.Maturities
	if len(maturities) == 0 {
		maturities = bondfinder.AllMaturities
	}
	yields := criteria.Yields
	if len(yields) == 0 {
		yields = bondfinder.AllYieldBands
	}

	bonds, err := s.source.FindWithinCriteria(ctx, bondfinder.RatingsFrom(floor), maturities, yields)
	if err != nil {
		return nil, err
	}

	matched := map[string]*models.CompanyRecord{}
	out := make([]models.BondListing, 0, len(bonds))
	for _, b := range bonds {
		key := core.NormalizeCompanyName(b.Issuer)
		co, ok := matched[key]
		if !ok {
			co, err = s.companies.MatchIssuer(ctx, b.Issuer)
			if err != nil {
				return nil, err
			}
			matched[key] = co
		}
		out = append(out, models.BondListing{Bond: b, Company: co})
	}
	s.log.Info("bond search finished", "min_rating", floor.String(), "bonds", len(out), "issuers", len(matched))
	return out, nil
}
