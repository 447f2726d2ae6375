package database

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// isNoRows reports whether err is pgx's no-rows sentinel, the common check
// every store in this package needs when a lookup is allowed to miss.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
