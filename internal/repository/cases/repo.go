// Package cases reads support cases from the relational store. The
// tracker API owns the table; this engine only enumerates and fetches.
package cases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// Repository provides read-only access to cs_cases.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a case repository over the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectColumns = `id, title, COALESCE(content, ''), COALESCE(tags, '{}'), created_at`

// ListAll enumerates the full case corpus.
func (r *Repository) ListAll(ctx context.Context) ([]domain.CaseDocument, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM cs_cases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var docs []domain.CaseDocument
	for rows.Next() {
		doc, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return docs, nil
}

// Get fetches one case by id.
func (r *Repository) Get(ctx context.Context, id int64) (domain.CaseDocument, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM cs_cases WHERE id = $1`, id)
	doc, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CaseDocument{}, domain.ErrCaseNotFound
		}
		return domain.CaseDocument{}, fmt.Errorf("get case %d: %w", id, err)
	}
	return doc, nil
}

func scanCase(row pgx.Row) (domain.CaseDocument, error) {
	var doc domain.CaseDocument
	err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.Tags, &doc.CreatedAt)
	return doc, err
}
