// Package modelcache persists the fitted vector space model and the
// per-case neighbor lists in the shared key-value cache.
package modelcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/db"
	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/vsm"
)

const (
	// modelKey is the single fixed key holding the serialized model.
	modelKey = "tfidf_model"
	// neighborKeyPrefix prefixes per-case neighbor-list keys.
	neighborKeyPrefix = "similar:"

	// DefaultNeighborTTL bounds neighbor-list staleness.
	DefaultNeighborTTL = 24 * time.Hour
)

// Cache reads and writes engine state through a db.KVStore.
//
// Concurrent callers may race to build and store a missing model; the
// last writer wins and no lock is taken. Model output is deterministic
// for a given corpus snapshot, so the race costs duplicated CPU work,
// never correctness.
type Cache struct {
	store  db.KVStore
	logger *zap.Logger
}

// New creates a model cache over the given store.
func New(store db.KVStore, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetModel loads and deserializes the cached model. A missing key or
// any deserialization failure reports domain.ErrModelNotCached; decode
// failures are logged, never propagated.
func (c *Cache) GetModel(ctx context.Context) (*vsm.Model, error) {
	data, err := c.store.Get(ctx, modelKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrModelNotCached
		}
		return nil, fmt.Errorf("get model: %w", err)
	}

	model, err := vsm.Unmarshal(data)
	if err != nil {
		c.logger.Warn("cached model is unreadable, treating as absent", zap.Error(err))
		return nil, domain.ErrModelNotCached
	}
	return model, nil
}

// PutModel serializes and stores the model under the fixed key with no
// expiry. The next PutModel replaces it wholesale.
func (c *Cache) PutModel(ctx context.Context, model *vsm.Model) error {
	data, err := model.Marshal()
	if err != nil {
		return fmt.Errorf("serialize model: %w", err)
	}
	if err := c.store.Set(ctx, modelKey, data); err != nil {
		return fmt.Errorf("put model: %w", err)
	}
	c.logger.Info("similarity model stored", zap.Int("bytes", len(data)))
	return nil
}

// GetNeighbors returns the cached neighbor list for a case, or nil
// when absent. An unreadable entry is logged and treated as absent.
func (c *Cache) GetNeighbors(ctx context.Context, caseID int64) ([]domain.Neighbor, error) {
	data, err := c.store.Get(ctx, neighborKey(caseID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get neighbors for case %d: %w", caseID, err)
	}

	var neighbors []domain.Neighbor
	if err := json.Unmarshal(data, &neighbors); err != nil {
		c.logger.Warn("cached neighbor list is unreadable, treating as absent",
			zap.Int64("case_id", caseID), zap.Error(err))
		return nil, nil
	}
	return neighbors, nil
}

// PutNeighbors stores a case's neighbor list as JSON with the given
// TTL, overwriting any previous entry.
func (c *Cache) PutNeighbors(ctx context.Context, caseID int64, neighbors []domain.Neighbor, ttl time.Duration) error {
	data, err := json.Marshal(neighbors)
	if err != nil {
		return fmt.Errorf("serialize neighbors for case %d: %w", caseID, err)
	}
	if err := c.store.SetWithTTL(ctx, neighborKey(caseID), data, ttl); err != nil {
		return fmt.Errorf("put neighbors for case %d: %w", caseID, err)
	}
	return nil
}

// Invalidate removes a case's cached neighbor list.
func (c *Cache) Invalidate(ctx context.Context, caseID int64) error {
	if err := c.store.Del(ctx, neighborKey(caseID)); err != nil {
		return fmt.Errorf("invalidate neighbors for case %d: %w", caseID, err)
	}
	return nil
}

func neighborKey(caseID int64) string {
	return neighborKeyPrefix + strconv.FormatInt(caseID, 10)
}
