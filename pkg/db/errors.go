package db

import "strings"

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. A matching constraintName is checked first; generic
// driver messages are accepted as a fallback.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	// SQLite reports unique violations without the constraint name.
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
