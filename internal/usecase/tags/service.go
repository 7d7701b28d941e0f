// Package tags maintains per-tag keyword associations: learning from
// tagged cases, suggesting tags for drafts, prefix search, and the
// periodic cleanup of stale signal.
package tags

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/metrics"
)

// Options tune suggestion and search limits.
type Options struct {
	SuggestTopK int // suggestions per query
	SearchLimit int // prefix-search results
}

func (o *Options) applyDefaults() {
	if o.SuggestTopK <= 0 {
		o.SuggestTopK = 5
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 10
	}
}

// Service implements tag learning and suggestion over a TagStore.
type Service struct {
	store   TagStore
	cases   CaseReader
	extract Extractor
	opts    Options
	logger  *zap.Logger
}

// New creates a tag service.
func New(store TagStore, cases CaseReader, extract Extractor, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{store: store, cases: cases, extract: extract, opts: opts, logger: logger}
}

// GetOrCreate finds a tag case-insensitively or creates it with
// provenance "user". The name is stripped; a blank name is a
// validation error, never an empty tag.
func (s *Service) GetOrCreate(ctx context.Context, name string) (domain.TagRecord, error) {
	rec, err := domain.NewTagRecord(name, domain.ProvenanceUser)
	if err != nil {
		return domain.TagRecord{}, err
	}

	existing, err := s.store.GetByName(ctx, rec.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrTagNotFound) {
		return domain.TagRecord{}, err
	}

	if err := s.store.Create(ctx, rec); err != nil {
		// A concurrent learner may have created it between lookup
		// and insert; the store's unique name rejects the duplicate.
		if existing, lookupErr := s.store.GetByName(ctx, rec.Name); lookupErr == nil {
			return existing, nil
		}
		return domain.TagRecord{}, err
	}
	return rec, nil
}

// Learn extracts keywords once from title+content and, for every tag
// name, bumps the usage count by exactly one and each keyword's weight
// by one. Returns the number of keywords extracted. Text with no
// extractable keywords leaves the store untouched.
func (s *Service) Learn(ctx context.Context, tagNames []string, title, content string) (int, error) {
	keywords := s.extract.Extract(title + " " + content)
	if len(keywords) == 0 {
		return 0, nil
	}

	for _, name := range tagNames {
		rec, err := s.GetOrCreate(ctx, name)
		if err != nil {
			return 0, err
		}
		rec.Learn(keywords)
		if err := s.store.Update(ctx, rec); err != nil {
			return 0, fmt.Errorf("learn tag %q: %w", rec.Name, err)
		}
	}
	return len(keywords), nil
}

// Suggestion is a scored tag suggestion.
type Suggestion struct {
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	UsageCount int     `json:"usage_count"`
}

// Suggest ranks existing tags against a case draft: each tag scores
// the sum of its weights for the extracted keywords, normalized by its
// usage count. Zero scores are dropped.
func (s *Service) Suggest(ctx context.Context, title, content string) ([]Suggestion, error) {
	metrics.SuggestTotal.Inc()

	keywords := s.extract.Extract(title + " " + content)
	if len(keywords) == 0 {
		return nil, nil
	}

	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	var suggestions []Suggestion
	for _, tag := range all {
		if len(tag.KeywordWeights) == 0 {
			continue
		}
		sum := 0
		for _, kw := range keywords {
			sum += tag.KeywordWeights[kw]
		}
		if sum == 0 {
			continue
		}
		usage := tag.UsageCount
		if usage < 1 {
			usage = 1
		}
		suggestions = append(suggestions, Suggestion{
			Name:       tag.Name,
			Score:      roundScore(float64(sum) / float64(usage)),
			UsageCount: tag.UsageCount,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
	if len(suggestions) > s.opts.SuggestTopK {
		suggestions = suggestions[:s.opts.SuggestTopK]
	}
	return suggestions, nil
}

// roundScore keeps suggestion scores at two decimals, matching what
// clients display.
func roundScore(s float64) float64 {
	return math.Round(s*100) / 100
}

// Search matches tag names case-insensitively by prefix, most used
// first. A blank prefix yields nothing.
func (s *Service) Search(ctx context.Context, prefix string) ([]domain.TagRecord, error) {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return nil, nil
	}
	return s.store.SearchPrefix(ctx, p, s.opts.SearchLimit)
}

// CleanupResult reports what a cleanup pass touched.
type CleanupResult struct {
	TagsCleaned     int
	TagsRemoved     int
	KeywordsRemoved int
}

// Cleanup drops keyword entries weighted <= 1 from every tag and
// deletes zero-usage tags unless they are seeds. Safe on an empty
// store; returns counts for observability.
func (s *Service) Cleanup(ctx context.Context) (CleanupResult, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("list tags: %w", err)
	}

	var result CleanupResult
	for _, tag := range all {
		if tag.Deletable() {
			if err := s.store.Delete(ctx, tag.Name); err != nil {
				return result, fmt.Errorf("delete tag %q: %w", tag.Name, err)
			}
			result.TagsRemoved++
			continue
		}

		removed := tag.PruneWeakKeywords()
		if removed == 0 {
			continue
		}
		if err := s.store.Update(ctx, tag); err != nil {
			return result, fmt.Errorf("prune tag %q: %w", tag.Name, err)
		}
		result.TagsCleaned++
		result.KeywordsRemoved += removed
	}

	s.logger.Info("tag cleanup finished",
		zap.Int("tags_cleaned", result.TagsCleaned),
		zap.Int("tags_removed", result.TagsRemoved),
		zap.Int("keywords_removed", result.KeywordsRemoved))
	return result, nil
}
