package tags

import (
	"context"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// TagStore persists TagRecord entities. Identity is the
// case-insensitive name; the engine assumes nothing else about storage.
type TagStore interface {
	GetByName(ctx context.Context, name string) (domain.TagRecord, error)
	Create(ctx context.Context, rec domain.TagRecord) error
	Update(ctx context.Context, rec domain.TagRecord) error
	Delete(ctx context.Context, name string) error
	ListAll(ctx context.Context) ([]domain.TagRecord, error)
	SearchPrefix(ctx context.Context, prefix string, limit int) ([]domain.TagRecord, error)
}

// Extractor reduces raw text to keyword tokens.
type Extractor interface {
	Extract(text string) []string
}

// CaseReader enumerates cases for tag migration.
type CaseReader interface {
	ListAll(ctx context.Context) ([]domain.CaseDocument, error)
}
