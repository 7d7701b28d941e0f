package similarity

import (
	"context"
	"time"

	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/vsm"
)

// CaseReader enumerates and fetches cases from the tracker's store.
type CaseReader interface {
	ListAll(ctx context.Context) ([]domain.CaseDocument, error)
	Get(ctx context.Context, id int64) (domain.CaseDocument, error)
}

// ModelCache stores the fitted model and per-case neighbor lists.
type ModelCache interface {
	GetModel(ctx context.Context) (*vsm.Model, error)
	PutModel(ctx context.Context, model *vsm.Model) error
	GetNeighbors(ctx context.Context, caseID int64) ([]domain.Neighbor, error)
	PutNeighbors(ctx context.Context, caseID int64, neighbors []domain.Neighbor, ttl time.Duration) error
	Invalidate(ctx context.Context, caseID int64) error
}

// Extractor reduces raw text to a keyword-joined document.
type Extractor interface {
	ExtractJoined(text string) string
}
