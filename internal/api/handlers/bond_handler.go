package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core/bondfinder"
	"github.com/markdave123-py/filingscope/internal/models"
	"github.com/markdave123-py/filingscope/internal/services"
)

type BondAPI interface {
	FindBonds(ctx context.Context, criteria services.BondCriteria) ([]models.BondListing, error)
}

type BondHandler struct {
	bonds BondAPI
}

func NewBondHandler(bonds BondAPI) *BondHandler {
	return &BondHandler{bonds: bonds}
}

// FindBonds handles GET /api/bonds?min_rating=Baa3&maturity=shortterm,longterm&yield=5.
func (h *BondHandler) FindBonds(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseBondCriteria(r)
	if err != nil {
		writeError(w, err)
		return
	}
	listings, err := h.bonds.FindBonds(r.Context(), criteria)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bonds": listings, "count": len(listings)})
}

func parseBondCriteria(r *http.Request) (services.BondCriteria, error) {
	var c services.BondCriteria
	q := r.URL.Query()

	if s := strings.TrimSpace(q.Get("min_rating")); s != "" {
		rating, err := bondfinder.ParseMoodyRating(s)
		if err != nil {
			return c, err
		}
		c.MinRating = rating
	}
	for _, s := range splitValues(q["maturity"]) {
		m, err := bondfinder.ParseMaturity(s)
		if err != nil {
			return c, err
		}
		c.Maturities = append(c.Maturities, m)
	}
	for _, s := range splitValues(q["yield"]) {
		y, err := bondfinder.ParseYieldBand(s)
		if err != nil {
			return c, err
		}
		c.Yields = append(c.Yields, y)
	}
	return c, nil
}

func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
