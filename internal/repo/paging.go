package repo

import (
	"fmt"
	"strings"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/models"
)

// DefaultMaxPageSize caps page_size when a store has no explicit maximum.
const DefaultMaxPageSize = 100

// pageBounds validates page and pageSize, clamps pageSize to max and returns the
// effective page size with the matching offset.
func pageBounds(page, pageSize, max int) (size, offset int, err error) {
	fields := make(map[string]string)
	if page < 1 {
		fields["page"] = "must be >= 1"
	}
	if pageSize < 1 {
		fields["page_size"] = "must be >= 1"
	}
	if len(fields) > 0 {
		return 0, 0, apperr.ValidationFields("invalid pagination", fields)
	}
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	size = min(pageSize, max)
	return size, (page - 1) * size, nil
}

// where accumulates AND-combined conditions with positional arguments.
type where struct {
	conds []string
	args  []any
}

// add appends cond, where every %[1]s in cond is replaced by the placeholder for arg.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, fmt.Sprintf("$%d", len(w.args))))
}

// dateRange adds inclusive bounds on column for the set ends of r.
func (w *where) dateRange(column string, r models.DateRange) {
	if r.From != nil {
		w.add(column+" >= %[1]s", *r.From)
	}
	if r.To != nil {
		w.add(column+" <= %[1]s", *r.To)
	}
}

// next returns the placeholder the next argument will get.
func (w *where) next() string {
	return fmt.Sprintf("$%d", len(w.args)+1)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
