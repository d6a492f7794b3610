package handlers

import (
	"log/slog"
	"net/http"

	"github.com/crucial707/spend-ledger/internal/notify"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// ==========================
// User Handler
// ==========================
type UserHandler struct {
	Repo      *repo.UserRepo
	Companies *repo.CompanyRepo
	// Notifier, when set, tells invited users about their new account.
	Notifier notify.Notifier
}

// ==========================
// Create User (admin)
// ==========================
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.Repo.Create(r.Context(), scope(r), input.Email, input.Password, input.IsAdmin)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.notifyInvited(r, user.Email)
	writeJSON(w, http.StatusCreated, user)
}

// notifyInvited mails the new user. The account already exists, so delivery failures
// are logged and do not fail the request.
func (h *UserHandler) notifyInvited(r *http.Request, email string) {
	if h.Notifier == nil {
		return
	}
	inv := notify.Invitation{Email: email}
	if h.Companies != nil {
		company, err := h.Companies.Get(r.Context(), scope(r))
		if err != nil {
			slog.WarnContext(r.Context(), "invitation: company lookup failed", "error", err)
		} else {
			inv.CompanyName = company.Name
		}
	}
	if err := h.Notifier.UserInvited(r.Context(), inv); err != nil {
		slog.ErrorContext(r.Context(), "invitation not delivered", "error", err, "company_id", scope(r).CompanyID)
	}
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size, err := pageParams(r)
	if err != nil {
		JSONError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	users, err := h.Repo.List(r.Context(), scope(r), page, size)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// ==========================
// Deactivate User (admin)
// ==========================
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Repo.Deactivate(r.Context(), scope(r), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
