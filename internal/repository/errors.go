package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned (wrapped) when a lookup matches no row.
var ErrNotFound = errors.New("not found")

func notFound(what, key string) error {
	return fmt.Errorf("%s %q: %w", what, key, ErrNotFound)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// scopeTenant adds a tenant filter when tenantID is set.
func scopeTenant(q *bun.SelectQuery, column string, tenantID *string) *bun.SelectQuery {
	if tenantID == nil {
		return q
	}
	return q.Where("? = ?", bun.Ident(column), *tenantID)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffected, what, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return notFound(what, key)
	}
	return nil
}
