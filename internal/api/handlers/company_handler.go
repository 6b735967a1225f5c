package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/markdave123-py/filingscope/internal/models"
)

type CompanyAPI interface {
	ImportDirectory(ctx context.Context) (int, error)
	Resolve(ctx context.Context, name string) (*models.CompanyRecord, error)
}

type CompanyHandler struct {
	companies CompanyAPI
}

func NewCompanyHandler(companies CompanyAPI) *CompanyHandler {
	return &CompanyHandler{companies: companies}
}

// ImportDirectory handles PUT /api/companies/import.
func (h *CompanyHandler) ImportDirectory(w http.ResponseWriter, r *http.Request) {
	n, err := h.companies.ImportDirectory(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "company directory imported",
		"companies": n,
	})
}

// Resolve handles GET /api/companies/resolve?name=.
func (h *CompanyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	co, err := h.companies.Resolve(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, co)
}
