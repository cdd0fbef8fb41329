package importer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrUnknownClient    = errors.New("unknown client")
	ErrUnknownSubClient = errors.New("unknown sub-client")
	ErrInvalidHours     = errors.New("invalid hours")
	ErrInvalidRate      = errors.New("invalid rate")
	ErrNoValidRows      = errors.New("no valid rows found")
)

// maxListedRows caps how many rejected row numbers a summary lists.
const maxListedRows = 10

// Rejection records why one input row was skipped.
type Rejection struct {
	Row int
	Err error
}

func (r Rejection) String() string {
	return fmt.Sprintf("row %d: %v", r.Row, r.Err)
}

// Result partitions an import into accepted requests and rejected rows.
type Result[T any] struct {
	Accepted []T
	Rejected []Rejection
	// Warnings are recoverable degradations, such as a date replaced by today.
	Warnings []string
}

func (r *Result[T]) reject(row int, err error) {
	r.Rejected = append(r.Rejected, Rejection{Row: row, Err: err})
}

func (r *Result[T]) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r Result[T]) RejectedRows() []int {
	rows := make([]int, len(r.Rejected))
	for i, rej := range r.Rejected {
		rows[i] = rej.Row
	}

	return rows
}

// Err returns ErrNoValidRows when nothing was accepted.
func (r Result[T]) Err() error {
	if len(r.Accepted) > 0 {
		return nil
	}

	if len(r.Rejected) > 0 {
		return fmt.Errorf("%w (first: %s)", ErrNoValidRows, r.Rejected[0])
	}

	return ErrNoValidRows
}

// SkippedSummary describes the rejected rows, or returns "" when none were rejected.
// At most ten row numbers are listed.
func (r Result[T]) SkippedSummary() string {
	if len(r.Rejected) == 0 {
		return ""
	}

	rows := r.RejectedRows()
	listed := rows
	suffix := ""

	if len(rows) > maxListedRows {
		listed = rows[:maxListedRows]
		suffix = "..."
	}

	parts := make([]string, len(listed))
	for i, n := range listed {
		parts[i] = strconv.Itoa(n)
	}

	return fmt.Sprintf("Skipped %d invalid rows (e.g., rows: %s%s)", len(rows), strings.Join(parts, ", "), suffix)
}
