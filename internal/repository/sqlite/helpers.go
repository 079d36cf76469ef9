// Package sqlite implements the repository interfaces over the SQLite
// spatial store.
package sqlite

import (
	"fmt"
	"strings"

	"github.com/mkoster/trailnet/internal/repository"
)

// handleSQLiteError converts driver errors into repository error types.
// modernc.org/sqlite surfaces constraint violations as plain error strings,
// so classification is textual.
func handleSQLiteError(err error, resource string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return repository.NewDuplicateKeyError(resource, "key", msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return repository.NewValidationError(resource, "reference", msg)
	case strings.Contains(msg, "CHECK constraint failed"):
		return repository.NewValidationError(resource, "check", msg)
	default:
		return fmt.Errorf("%s operation failed: %w", resource, err)
	}
}

// int64Placeholders renders "?,?,..." for n values and the matching args.
func int64Placeholders(ids []int64) (string, []interface{}) {
	marks := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

// stringPlaceholders renders "?,?,..." for n values and the matching args.
func stringPlaceholders(vals []string) (string, []interface{}) {
	marks := make([]string, len(vals))
	args := make([]interface{}, len(vals))
	for i, v := range vals {
		marks[i] = "?"
		args[i] = v
	}
	return strings.Join(marks, ","), args
}
