package handlers

import (
	"net/http"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// ApiKeyHandler manages the caller's api keys.
type ApiKeyHandler struct {
	Repo *repo.ApiKeyRepo
}

type createdKey struct {
	models.ApiKey
	// Key is the plaintext key. It is only ever returned here.
	Key string `json:"key"`
}

func (h *ApiKeyHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name string `json:"name" validate:"required,max=100"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	key, plain, err := h.Repo.Create(r.Context(), scope(r), input.Name)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdKey{ApiKey: key, Key: plain})
}

func (h *ApiKeyHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Repo.List(r.Context(), scope(r))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

func (h *ApiKeyHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Repo.Deactivate(r.Context(), scope(r), id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
