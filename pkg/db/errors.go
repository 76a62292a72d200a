package db

import "strings"

// IsUniqueViolation reports whether err looks like a Postgres unique
// constraint failure, the usual suspect being a generated PO or invoice
// number suffix colliding under its unique index. A non-empty
// constraintName narrows the check to that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
