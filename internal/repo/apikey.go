package repo

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

// KeyPrefix starts every generated api key.
const KeyPrefix = "et_"

const apiKeyColumns = `id, name, key_hash, user_id, company_id, is_active, created_at`

// ApiKeyRepo stores hashed api keys. Plaintext keys are never persisted.
type ApiKeyRepo struct {
	DB *sql.DB
}

func NewApiKeyRepo(db *sql.DB) *ApiKeyRepo {
	return &ApiKeyRepo{DB: db}
}

// GenerateKey returns a new random plaintext key.
func GenerateKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return KeyPrefix + base58.Encode(b), nil
}

// HashKey returns the hex sha256 of a plaintext key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Preview is the display form of a stored key.
func Preview(hash string) string {
	if len(hash) < 4 {
		return KeyPrefix + "••••"
	}
	return KeyPrefix + "••••" + hash[len(hash)-4:]
}

// Create stores a new key for the scope's user and returns it with its plaintext, which
// is not recoverable afterwards.
func (r *ApiKeyRepo) Create(ctx context.Context, scope tenant.Scope, name string) (models.ApiKey, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.ApiKey{}, "", apperr.ValidationFields("validation failed", map[string]string{"name": "required"})
	}

	var taken bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM api_keys WHERE user_id = $1 AND name = $2 AND is_active)`,
		scope.UserID, name).Scan(&taken); err != nil {
		return models.ApiKey{}, "", fmt.Errorf("check api key name: %w", err)
	}
	if taken {
		return models.ApiKey{}, "", apperr.ValidationFields("an active api key with this name already exists",
			map[string]string{"name": "already in use"})
	}

	plain, err := GenerateKey()
	if err != nil {
		return models.ApiKey{}, "", err
	}
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO api_keys (name, key_hash, user_id, company_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+apiKeyColumns,
		name, HashKey(plain), scope.UserID, scope.CompanyID)
	key, err := scanApiKey(row)
	if err != nil {
		return models.ApiKey{}, "", apperr.FromPostgres("insert api key", err)
	}
	return key, plain, nil
}

// List returns the active keys of the scope's user.
func (r *ApiKeyRepo) List(ctx context.Context, scope tenant.Scope) ([]models.ApiKey, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+apiKeyColumns+` FROM api_keys
		 WHERE user_id = $1 AND company_id = $2 AND is_active
		 ORDER BY created_at DESC, id DESC`,
		scope.UserID, scope.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []models.ApiKey{}
	for rows.Next() {
		k, err := scanApiKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Deactivate revokes one of the scope user's active keys.
func (r *ApiKeyRepo) Deactivate(ctx context.Context, scope tenant.Scope, id int) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = FALSE
		 WHERE id = $1 AND user_id = $2 AND company_id = $3 AND is_active`,
		id, scope.UserID, scope.CompanyID)
	if err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("api key", id)
	}
	return nil
}

// Resolve maps a plaintext key to the scope it acts for. Unknown keys, revoked keys and
// keys of inactive users are all not found.
func (r *ApiKeyRepo) Resolve(ctx context.Context, plain string) (tenant.Scope, error) {
	var s tenant.Scope
	err := r.DB.QueryRowContext(ctx,
		`SELECT k.id, k.company_id, k.user_id, u.is_admin
		 FROM api_keys k JOIN users u ON u.id = k.user_id
		 WHERE k.key_hash = $1 AND k.is_active AND u.is_active`,
		HashKey(plain)).Scan(&s.APIKeyID, &s.CompanyID, &s.UserID, &s.IsAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return s, &apperr.NotFoundError{Entity: "api key"}
	}
	if err != nil {
		return s, fmt.Errorf("resolve api key: %w", err)
	}
	return s, nil
}

func scanApiKey(s scanner) (models.ApiKey, error) {
	var k models.ApiKey
	err := s.Scan(&k.ID, &k.Name, &k.KeyHash, &k.UserID, &k.CompanyID, &k.IsActive, &k.CreatedAt)
	k.KeyPreview = Preview(k.KeyHash)
	return k, err
}
