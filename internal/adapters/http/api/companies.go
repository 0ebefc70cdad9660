package api

import (
	"net/http"

	"github.com/okian/guessconv/internal/domain/dataset"
)

// CompaniesHandler serves the static question dataset.
type CompaniesHandler struct {
	companies []dataset.Company
}

// NewCompaniesHandler creates a handler over companies.
func NewCompaniesHandler(companies []dataset.Company) *CompaniesHandler {
	if companies == nil {
		companies = []dataset.Company{}
	}
	return &CompaniesHandler{companies: companies}
}

// HandleGetCompanies handles GET /api/companies.
func (h *CompaniesHandler) HandleGetCompanies(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	writeJSON(w, http.StatusOK, h.companies)
}
