// Package tags persists TagRecord entities in the relational store.
// Identity is the case-insensitive name.
package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// Repository provides CRUD over tag_master.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a tag repository over the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tag_master table when missing. The engine
// owns this table, unlike cs_cases.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tag_master (
			name            TEXT PRIMARY KEY,
			keyword_weights JSONB NOT NULL DEFAULT '{}',
			usage_count     INTEGER NOT NULL DEFAULT 0,
			provenance      TEXT NOT NULL DEFAULT 'user',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure tag schema: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS tag_master_name_lower ON tag_master (LOWER(name))`)
	if err != nil {
		return fmt.Errorf("ensure tag name index: %w", err)
	}
	return nil
}

const selectColumns = `name, keyword_weights, usage_count, provenance, created_at`

// GetByName looks a tag up case-insensitively.
func (r *Repository) GetByName(ctx context.Context, name string) (domain.TagRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM tag_master WHERE LOWER(name) = LOWER($1)`, name)
	rec, err := scanTag(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TagRecord{}, domain.ErrTagNotFound
		}
		return domain.TagRecord{}, fmt.Errorf("get tag %q: %w", name, err)
	}
	return rec, nil
}

// Create inserts a new tag record.
func (r *Repository) Create(ctx context.Context, rec domain.TagRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tag_master (name, keyword_weights, usage_count, provenance)
		VALUES ($1, $2, $3, $4)`,
		rec.Name, rec.KeywordWeights, rec.UsageCount, string(rec.Provenance))
	if err != nil {
		return fmt.Errorf("create tag %q: %w", rec.Name, err)
	}
	return nil
}

// Update writes back a tag's keyword weights and usage count.
func (r *Repository) Update(ctx context.Context, rec domain.TagRecord) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE tag_master SET keyword_weights = $2, usage_count = $3
		WHERE LOWER(name) = LOWER($1)`,
		rec.Name, rec.KeywordWeights, rec.UsageCount)
	if err != nil {
		return fmt.Errorf("update tag %q: %w", rec.Name, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrTagNotFound
	}
	return nil
}

// Delete removes a tag by name.
func (r *Repository) Delete(ctx context.Context, name string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tag_master WHERE LOWER(name) = LOWER($1)`, name)
	if err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// ListAll enumerates every tag record.
func (r *Repository) ListAll(ctx context.Context) ([]domain.TagRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM tag_master ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()
	return collectTags(rows)
}

// SearchPrefix matches tag names case-insensitively by prefix, ordered
// by usage count descending.
func (r *Repository) SearchPrefix(ctx context.Context, prefix string, limit int) ([]domain.TagRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+selectColumns+` FROM tag_master
		WHERE name ILIKE $1 || '%'
		ORDER BY usage_count DESC, name
		LIMIT $2`, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("search tags %q: %w", prefix, err)
	}
	defer rows.Close()
	return collectTags(rows)
}

func collectTags(rows pgx.Rows) ([]domain.TagRecord, error) {
	var recs []domain.TagRecord
	for rows.Next() {
		rec, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	return recs, nil
}

func scanTag(row pgx.Row) (domain.TagRecord, error) {
	var rec domain.TagRecord
	var prov string
	if err := row.Scan(&rec.Name, &rec.KeywordWeights, &rec.UsageCount, &prov, &rec.CreatedAt); err != nil {
		return domain.TagRecord{}, err
	}
	rec.Provenance = domain.Provenance(prov)
	if rec.KeywordWeights == nil {
		rec.KeywordWeights = map[string]int{}
	}
	return rec, nil
}
