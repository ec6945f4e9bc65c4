package store

import (
	"errors"
	"strings"
)

// ErrDuplicate is returned when an insert or update would violate a
// uniqueness rule (household name/email, person name within a household).
var ErrDuplicate = errors.New("duplicate record")

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The modernc driver exposes constraint errors only through the
// error string.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
