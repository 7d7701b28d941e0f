package domain

import "time"

// CaseDocument is the engine's read-only view of a support case.
// The case repository owns the records; this engine never mutates them.
type CaseDocument struct {
	ID        int64
	Title     string
	Content   string
	Tags      []string // may be empty
	CreatedAt time.Time
}
