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

// auditSelect reads audit rows with the acting user's email. The join is LEFT so a record
// never disappears from the log because of its user row.
const auditSelect = `SELECT a.id, a.action, a.entity_type, a.entity_id, a.description, a.previous_data, a.new_data,
       a.user_id, COALESCE(u.email, ''), a.company_id, a.created_at
  FROM audit_records a
  LEFT JOIN users u ON u.id = a.user_id`

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// AuditRepo is the audit recorder. Writes always go through the caller's transaction so an
// audit row exists if and only if the mutation it documents was committed.
type AuditRepo struct {
	db          *sql.DB
	MaxPageSize int
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db, MaxPageSize: DefaultMaxPageSize}
}

// Record appends one audit row using q, which must be the transaction of the mutation.
func (r *AuditRepo) Record(ctx context.Context, q db.Queryer, scope tenant.Scope, e models.AuditEntry) (models.AuditRecord, error) {
	switch e.Action {
	case models.ActionCreate, models.ActionUpdate, models.ActionDelete:
	default:
		return models.AuditRecord{}, fmt.Errorf("audit: unknown action %q", e.Action)
	}
	if e.EntityType == "" {
		return models.AuditRecord{}, errors.New("audit: entity type is required")
	}
	if e.Previous == nil && e.New == nil {
		return models.AuditRecord{}, errors.New("audit: previous and new snapshots are both empty")
	}

	rec := models.AuditRecord{
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Description:  e.Description,
		PreviousData: e.Previous,
		NewData:      e.New,
		UserID:       scope.UserID,
		CompanyID:    scope.CompanyID,
	}
	err := q.QueryRowContext(ctx,
		`INSERT INTO audit_records (action, entity_type, entity_id, description, previous_data, new_data, user_id, company_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		rec.Action, rec.EntityType, rec.EntityID, rec.Description, rec.PreviousData, rec.NewData, rec.UserID, rec.CompanyID,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return models.AuditRecord{}, apperr.FromPostgres("insert audit record", err)
	}

	slog.DebugContext(ctx, "audit recorded",
		"audit_id", rec.ID,
		"company_id", rec.CompanyID,
		"entity_type", rec.EntityType,
		"entity_id", rec.EntityID,
		"action", rec.Action)
	return rec, nil
}

// Query returns the company's audit records matching f, newest first.
// Search is a case-insensitive substring match on the description and both snapshots.
func (r *AuditRepo) Query(ctx context.Context, scope tenant.Scope, f models.AuditFilter, page, pageSize int) (models.Page[models.AuditRecord], error) {
	size, offset, err := pageBounds(page, pageSize, r.MaxPageSize)
	if err != nil {
		return models.Page[models.AuditRecord]{}, err
	}
	if err := f.Range.Validate(); err != nil {
		return models.Page[models.AuditRecord]{}, apperr.Validation("%s", err.Error())
	}

	w := &where{}
	w.add("a.company_id = %[1]s", scope.CompanyID)
	if f.EntityType != "" {
		w.add("a.entity_type = %[1]s", f.EntityType)
	}
	if f.Action != "" {
		w.add("a.action = %[1]s", f.Action)
	}
	if f.UserID != 0 {
		w.add("a.user_id = %[1]s", f.UserID)
	}
	// created_at is a timestamp; the end date covers the whole day.
	if f.Range.From != nil {
		w.add("a.created_at >= %[1]s", *f.Range.From)
	}
	if f.Range.To != nil {
		w.add("a.created_at < %[1]s", f.Range.To.AddDays(1))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		w.add(`(a.description ILIKE %[1]s ESCAPE '\' OR a.previous_data::text ILIKE %[1]s ESCAPE '\' OR a.new_data::text ILIKE %[1]s ESCAPE '\')`,
			"%"+likeEscaper.Replace(s)+"%")
	}

	out := models.Page[models.AuditRecord]{Items: []models.AuditRecord{}, Page: page, PageSize: size}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_records a`+w.String(), w.args...).Scan(&out.Total); err != nil {
		return out, fmt.Errorf("count audit records: %w", err)
	}

	query := auditSelect + w.String() +
		fmt.Sprintf(` ORDER BY a.created_at DESC, a.id DESC LIMIT %s OFFSET $%d`, w.next(), len(w.args)+2)
	rows, err := r.db.QueryContext(ctx, query, append(w.args, size, offset)...)
	if err != nil {
		return out, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanAudit(rows)
		if err != nil {
			return out, err
		}
		out.Items = append(out.Items, rec)
	}
	return out, rows.Err()
}

// Get returns one audit record of the company.
func (r *AuditRepo) Get(ctx context.Context, scope tenant.Scope, id int) (models.AuditRecord, error) {
	row := r.db.QueryRowContext(ctx,
		auditSelect+` WHERE a.id = $1 AND a.company_id = $2`,
		id, scope.CompanyID)
	rec, err := scanAudit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, apperr.NotFound("audit record", id)
	}
	return rec, err
}

// DistinctActions lists the actions present in the company's audit log.
func (r *AuditRepo) DistinctActions(ctx context.Context, scope tenant.Scope) ([]string, error) {
	return r.distinct(ctx, "action", scope.CompanyID)
}

// DistinctEntityTypes lists the entity types present in the company's audit log.
func (r *AuditRepo) DistinctEntityTypes(ctx context.Context, scope tenant.Scope) ([]string, error) {
	return r.distinct(ctx, "entity_type", scope.CompanyID)
}

// column is one of a fixed set of identifiers, never user input.
func (r *AuditRepo) distinct(ctx context.Context, column string, companyID int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM audit_records WHERE company_id = $1 ORDER BY `+column,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAudit(s scanner) (models.AuditRecord, error) {
	var rec models.AuditRecord
	err := s.Scan(&rec.ID, &rec.Action, &rec.EntityType, &rec.EntityID, &rec.Description,
		&rec.PreviousData, &rec.NewData, &rec.UserID, &rec.UserEmail, &rec.CompanyID, &rec.CreatedAt)
	return rec, err
}
