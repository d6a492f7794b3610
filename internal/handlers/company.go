package handlers

import (
	"net/http"

	"github.com/crucial707/spend-ledger/internal/repo"
)

// CompanyHandler serves the caller's own company.
type CompanyHandler struct {
	Repo *repo.CompanyRepo
}

func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Repo.Get(r.Context(), scope(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update replaces name, address and website. The logo is kept when omitted.
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string `json:"name" validate:"required,max=255"`
		Address string `json:"address" validate:"max=500"`
		Website string `json:"website" validate:"omitempty,url,max=255"`
		Logo    []byte `json:"logo"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	c, err := h.Repo.Update(r.Context(), scope(r), repo.CompanyInput(input))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
