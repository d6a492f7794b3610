package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/spend-ledger/internal/middleware"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/repo"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Companies *repo.CompanyRepo
	Users     *repo.UserRepo
	Secret    []byte
	TokenTTL  time.Duration
}

type tokenResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	User      models.User `json:"user"`
}

// ==========================
// Register (company plus its first admin)
// ==========================
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CompanyName string `json:"company_name" validate:"required,max=255"`
		Address     string `json:"address" validate:"max=500"`
		Website     string `json:"website" validate:"omitempty,url,max=255"`
		// Logo is base64 in JSON.
		Logo     []byte `json:"logo"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=72"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	company, admin, err := h.Companies.Register(r.Context(), repo.CompanyInput{
		Name:    input.CompanyName,
		Address: input.Address,
		Website: input.Website,
		Logo:    input.Logo,
	}, input.Email, input.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"company": company,
		"user":    admin,
	})
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.Users.Authenticate(r.Context(), input.Email, input.Password)
	if errors.Is(err, repo.ErrInvalidCredentials) {
		JSONError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}

	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	signed, err := middleware.NewToken(h.Secret, user.ID, user.CompanyID, user.IsAdmin, ttl)
	if err != nil {
		slog.ErrorContext(r.Context(), "sign token", "error", err)
		JSONError(w, http.StatusInternalServerError, "failed to issue token", nil)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: signed, TokenType: "bearer", User: user})
}

// ==========================
// Me
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s := scope(r)
	user, err := h.Users.GetByID(r.Context(), s, s.UserID)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ==========================
// Update Me
// ==========================
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CurrentPassword string `json:"current_password" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}

	user, err := h.Users.ChangePassword(r.Context(), scope(r), input.CurrentPassword, input.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "password changed", "user_id", user.ID, "company_id", user.CompanyID)
	writeJSON(w, http.StatusOK, user)
}
