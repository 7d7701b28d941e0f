// Package similarity orchestrates case similarity: the real-time query
// path, per-case recomputation, and the full model rebuild.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/metrics"
	"github.com/rokysan7/Internal-SYS/internal/scorer"
	"github.com/rokysan7/Internal-SYS/internal/vsm"
)

// Options tune the scoring and caching behavior.
type Options struct {
	Threshold          float64       // minimum combined score
	TopN               int           // matches exposed per query
	NeighborTTL        time.Duration // cached neighbor-list TTL
	RealtimeCorpusCap  int           // above this, the on-request path won't fit a model
	MinQueryTitleRunes int           // realtime gate on draft titles
}

func (o *Options) applyDefaults() {
	if o.Threshold <= 0 {
		o.Threshold = scorer.DefaultThreshold
	}
	if o.TopN <= 0 {
		o.TopN = domain.MaxSimilarResults
	}
	if o.NeighborTTL <= 0 {
		o.NeighborTTL = 24 * time.Hour
	}
	if o.RealtimeCorpusCap <= 0 {
		o.RealtimeCorpusCap = 1000
	}
	if o.MinQueryTitleRunes <= 0 {
		o.MinQueryTitleRunes = 3
	}
}

// Service is stateless between calls; all shared state lives in the
// model cache, so concurrent invocations need no coordination.
type Service struct {
	cases   CaseReader
	cache   ModelCache
	extract Extractor
	opts    Options
	logger  *zap.Logger
}

// New creates a similarity service.
func New(cases CaseReader, cache ModelCache, extract Extractor, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{cases: cases, cache: cache, extract: extract, opts: opts, logger: logger}
}

// FindSimilar ranks existing cases against a case draft. Drafts with a
// title under the minimum length and no content yield no results.
func (s *Service) FindSimilar(ctx context.Context, title, content string, tags []string) ([]domain.Match, error) {
	if utf8.RuneCountInString(strings.TrimSpace(title)) < s.opts.MinQueryTitleRunes &&
		strings.TrimSpace(content) == "" {
		return nil, nil
	}

	corpus, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	model, err := s.modelForRequest(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if model == nil {
		// Corpus too large to fit on the request path; the rebuild
		// job will populate the cache.
		return nil, nil
	}

	candidates, err := s.scoreAgainst(model, title, content, corpus)
	if err != nil {
		return nil, err
	}
	return scorer.FindTopMatches(tags, candidates, s.opts.TopN, s.opts.Threshold), nil
}

// SimilarToCase returns the most similar cases for an existing case,
// serving the cached neighbor list when present and computing in real
// time otherwise.
func (s *Service) SimilarToCase(ctx context.Context, caseID int64) ([]domain.Match, error) {
	target, err := s.cases.Get(ctx, caseID)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.GetNeighbors(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if len(cached) > 0 {
		metrics.NeighborCacheTotal.WithLabelValues("hit").Inc()
		return s.matchesFromCache(ctx, target, cached)
	}
	metrics.NeighborCacheTotal.WithLabelValues("miss").Inc()

	corpus, err := s.cases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	candidates := excludeCase(corpus, caseID)
	if len(candidates) == 0 {
		return nil, nil
	}

	model, err := s.modelForRequest(ctx, corpus)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, nil
	}

	scored, err := s.scoreAgainst(model, target.Title, target.Content, candidates)
	if err != nil {
		return nil, err
	}
	return scorer.FindTopMatches(target.Tags, scored, s.opts.TopN, s.opts.Threshold), nil
}

// matchesFromCache resolves cached neighbor entries to current cases.
// Entries whose case has since disappeared are skipped; matched tags
// are re-derived against the cases' current tags.
func (s *Service) matchesFromCache(ctx context.Context, target domain.CaseDocument, cached []domain.Neighbor) ([]domain.Match, error) {
	limit := s.opts.TopN
	if limit > len(cached) {
		limit = len(cached)
	}

	matches := make([]domain.Match, 0, limit)
	for _, n := range cached[:limit] {
		c, err := s.cases.Get(ctx, n.CaseID)
		if err != nil {
			if errors.Is(err, domain.ErrCaseNotFound) {
				continue
			}
			return nil, err
		}
		matches = append(matches, domain.Match{
			Case:        c,
			Score:       n.Score,
			MatchedTags: scorer.SharedTags(target.Tags, c.Tags),
		})
	}
	return matches, nil
}

// RecomputeCase refreshes one case's neighbor list against the cached
// model. It never refits the shared vocabulary: new terms in the
// edited case stay out of vocabulary until the next full rebuild.
// Overwrites exactly one cache entry, so retries are safe.
func (s *Service) RecomputeCase(ctx context.Context, caseID int64) error {
	target, err := s.cases.Get(ctx, caseID)
	if err != nil {
		if errors.Is(err, domain.ErrCaseNotFound) {
			// The case is gone; drop its stale entry.
			return s.cache.Invalidate(ctx, caseID)
		}
		return err
	}

	corpus, err := s.cases.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	model, err := s.cache.GetModel(ctx)
	if errors.Is(err, domain.ErrModelNotCached) {
		// Lazy first build from the current snapshot. Concurrent
		// workers may race here; last writer wins (see modelcache).
		model, err = s.fitModel(corpus)
		if err != nil {
			return err
		}
		if model == nil {
			return nil
		}
		if putErr := s.cache.PutModel(ctx, model); putErr != nil {
			return putErr
		}
	} else if err != nil {
		return err
	}

	scored, err := s.scoreAgainst(model, target.Title, target.Content, excludeCase(corpus, caseID))
	if err != nil {
		return err
	}
	top := scorer.FindTopMatches(target.Tags, scored, domain.NeighborCacheSize, s.opts.Threshold)
	return s.cache.PutNeighbors(ctx, caseID, toNeighbors(top), s.opts.NeighborTTL)
}

// RebuildResult reports what a full rebuild touched.
type RebuildResult struct {
	Cases     int
	Neighbors int
}

// RebuildAll fits a fresh model over the full corpus, replaces the
// cached model wholesale, and recomputes every case's neighbor list.
// There is no corpus size cap on this path. Idempotent.
func (s *Service) RebuildAll(ctx context.Context) (RebuildResult, error) {
	corpus, err := s.cases.ListAll(ctx)
	if err != nil {
		return RebuildResult{}, fmt.Errorf("load corpus: %w", err)
	}
	if len(corpus) == 0 {
		s.logger.Info("rebuild skipped, corpus is empty")
		return RebuildResult{}, nil
	}

	model, err := s.fitModel(corpus)
	if err != nil {
		return RebuildResult{}, err
	}
	if err := s.cache.PutModel(ctx, model); err != nil {
		return RebuildResult{}, err
	}

	titleVecs, contentVecs := s.transformCorpus(model, corpus)

	result := RebuildResult{Cases: len(corpus)}
	for i, target := range corpus {
		candidates := make([]scorer.Candidate, 0, len(corpus)-1)
		for j, c := range corpus {
			if j == i {
				continue
			}
			candidates = append(candidates, scorer.Candidate{
				Case:          c,
				TitleCosine:   vsm.Cosine(titleVecs[i], titleVecs[j]),
				ContentCosine: vsm.Cosine(contentVecs[i], contentVecs[j]),
			})
		}
		top := scorer.FindTopMatches(target.Tags, candidates, domain.NeighborCacheSize, s.opts.Threshold)
		if err := s.cache.PutNeighbors(ctx, target.ID, toNeighbors(top), s.opts.NeighborTTL); err != nil {
			return result, err
		}
		result.Neighbors += len(top)
	}

	s.logger.Info("similarity model rebuilt",
		zap.Int("cases", result.Cases), zap.Int("neighbor_entries", result.Neighbors))
	return result, nil
}

// modelForRequest loads the cached model, building it lazily when the
// corpus is small enough for the request path. A nil model with nil
// error means "too large, serve nothing".
func (s *Service) modelForRequest(ctx context.Context, corpus []domain.CaseDocument) (*vsm.Model, error) {
	model, err := s.cache.GetModel(ctx)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, domain.ErrModelNotCached) {
		return nil, err
	}

	if len(corpus) > s.opts.RealtimeCorpusCap {
		s.logger.Warn("no cached model and corpus exceeds realtime cap, serving empty",
			zap.Int("corpus", len(corpus)), zap.Int("cap", s.opts.RealtimeCorpusCap))
		return nil, nil
	}

	model, err = s.fitModel(corpus)
	if err != nil || model == nil {
		return nil, err
	}
	if putErr := s.cache.PutModel(ctx, model); putErr != nil {
		// The computation can still serve this request.
		s.logger.Warn("failed to store lazily built model", zap.Error(putErr))
	}
	return model, nil
}

func (s *Service) fitModel(corpus []domain.CaseDocument) (*vsm.Model, error) {
	if len(corpus) == 0 {
		return nil, nil
	}
	titles := make([]string, len(corpus))
	contents := make([]string, len(corpus))
	for i, c := range corpus {
		titles[i] = s.extract.ExtractJoined(c.Title)
		contents[i] = s.extract.ExtractJoined(c.Content)
	}
	model, err := vsm.Fit(titles, contents)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}
	return model, nil
}

func (s *Service) transformCorpus(model *vsm.Model, corpus []domain.CaseDocument) ([]vsm.SparseVector, []vsm.SparseVector) {
	titles := make([]string, len(corpus))
	contents := make([]string, len(corpus))
	for i, c := range corpus {
		titles[i] = s.extract.ExtractJoined(c.Title)
		contents[i] = s.extract.ExtractJoined(c.Content)
	}
	return model.Title.TransformBatch(titles), model.Content.TransformBatch(contents)
}

// scoreAgainst computes cosine sub-scores of every candidate against
// the query text using the fitted model.
func (s *Service) scoreAgainst(model *vsm.Model, title, content string, candidates []domain.CaseDocument) ([]scorer.Candidate, error) {
	titleVec, err := model.TransformTitle(s.extract.ExtractJoined(title))
	if err != nil {
		return nil, err
	}
	contentVec, err := model.TransformContent(s.extract.ExtractJoined(content))
	if err != nil {
		return nil, err
	}

	titleVecs, contentVecs := s.transformCorpus(model, candidates)
	titleSims := vsm.BatchCosine(titleVec, titleVecs)
	contentSims := vsm.BatchCosine(contentVec, contentVecs)

	scored := make([]scorer.Candidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scorer.Candidate{
			Case:          c,
			TitleCosine:   titleSims[i],
			ContentCosine: contentSims[i],
		}
	}
	return scored, nil
}

func excludeCase(corpus []domain.CaseDocument, caseID int64) []domain.CaseDocument {
	out := make([]domain.CaseDocument, 0, len(corpus))
	for _, c := range corpus {
		if c.ID != caseID {
			out = append(out, c)
		}
	}
	return out
}

func toNeighbors(matches []domain.Match) []domain.Neighbor {
	neighbors := make([]domain.Neighbor, len(matches))
	for i, m := range matches {
		neighbors[i] = domain.Neighbor{CaseID: m.Case.ID, Score: m.Score}
	}
	return neighbors
}
