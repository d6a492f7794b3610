package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/db"
	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

const companyColumns = `id, name, address, website, logo, created_at`

// CompanyRepo stores tenants.
type CompanyRepo struct {
	DB *sql.DB
}

func NewCompanyRepo(db *sql.DB) *CompanyRepo {
	return &CompanyRepo{DB: db}
}

// CompanyInput holds the editable company fields.
type CompanyInput struct {
	Name    string
	Address string
	Website string
	Logo    []byte
}

// Register creates a company together with its first admin user.
func (r *CompanyRepo) Register(ctx context.Context, in CompanyInput, email, password string) (models.Company, models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Company{}, models.User{}, apperr.ValidationFields("validation failed",
			map[string]string{"name": "required"})
	}

	var (
		company models.Company
		admin   models.User
	)
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := ensureCompanyNameFree(ctx, tx, in.Name, 0); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx,
			`INSERT INTO companies (name, address, website, logo)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+companyColumns,
			in.Name, in.Address, in.Website, in.Logo)
		var err error
		if company, err = scanCompany(row); err != nil {
			return apperr.FromPostgres("insert company", err)
		}
		admin, err = insertUser(ctx, tx, company.ID, email, password, true)
		return err
	})
	if err != nil {
		return models.Company{}, models.User{}, err
	}

	slog.InfoContext(ctx, "company registered", "company_id", company.ID, "user_id", admin.ID)
	return company, admin, nil
}

func (r *CompanyRepo) Get(ctx context.Context, scope tenant.Scope) (models.Company, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, scope.CompanyID)
	c, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return c, apperr.NotFound("company", scope.CompanyID)
	}
	if err != nil {
		return c, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

// Update replaces the editable fields of the scope's company. A nil logo keeps the
// current one.
func (r *CompanyRepo) Update(ctx context.Context, scope tenant.Scope, in CompanyInput) (models.Company, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return models.Company{}, apperr.ValidationFields("validation failed", map[string]string{"name": "required"})
	}

	var c models.Company
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := ensureCompanyNameFree(ctx, tx, in.Name, scope.CompanyID); err != nil {
			return err
		}
		row := tx.QueryRowContext(ctx,
			`UPDATE companies
			 SET name = $1, address = $2, website = $3, logo = COALESCE($4, logo)
			 WHERE id = $5
			 RETURNING `+companyColumns,
			in.Name, in.Address, in.Website, in.Logo, scope.CompanyID)
		var err error
		c, err = scanCompany(row)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("company", scope.CompanyID)
		}
		if err != nil {
			return apperr.FromPostgres("update company", err)
		}
		return nil
	})
	return c, err
}

func ensureCompanyNameFree(ctx context.Context, q db.Queryer, name string, exceptID int) error {
	var taken bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM companies WHERE name = $1 AND id <> $2)`, name, exceptID).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check company name: %w", err)
	}
	if taken {
		return apperr.ValidationFields("a company with this name already exists",
			map[string]string{"name": "already in use"})
	}
	return nil
}

func scanCompany(s scanner) (models.Company, error) {
	var c models.Company
	err := s.Scan(&c.ID, &c.Name, &c.Address, &c.Website, &c.Logo, &c.CreatedAt)
	return c, err
}
