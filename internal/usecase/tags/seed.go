package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// seedTags are the pre-loaded tags with hand-tuned keyword weights.
// Cleanup never deletes them.
var seedTags = map[string]map[string]int{
	"로그인":  {"로그인": 5, "인증": 3, "비밀번호": 3, "접속": 2, "login": 2},
	"라이선스": {"라이선스": 5, "만료": 3, "갱신": 3, "키": 2, "license": 2},
	"설치":   {"설치": 5, "업데이트": 3, "설정": 2, "install": 2, "setup": 2},
	"에러":   {"에러": 5, "오류": 3, "실패": 3, "error": 2, "crash": 2},
	"네트워크": {"네트워크": 5, "연결": 3, "VPN": 3, "timeout": 2, "방화벽": 2},
}

// SeedDefaults inserts the seed tags, skipping names that already
// exist. Safe to re-run.
func (s *Service) SeedDefaults(ctx context.Context) (created, skipped int, err error) {
	for name, weights := range seedTags {
		_, err := s.store.GetByName(ctx, name)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, domain.ErrTagNotFound) {
			return created, skipped, err
		}

		rec, err := domain.NewTagRecord(name, domain.ProvenanceSeed)
		if err != nil {
			return created, skipped, err
		}
		for kw, w := range weights {
			rec.KeywordWeights[kw] = w
		}
		if err := s.store.Create(ctx, rec); err != nil {
			return created, skipped, fmt.Errorf("seed tag %q: %w", name, err)
		}
		created++
	}

	s.logger.Info("seed tags applied", zap.Int("created", created), zap.Int("skipped", skipped))
	return created, skipped, nil
}

// MigrationResult reports what a tag migration pass touched.
type MigrationResult struct {
	Cases   int
	NewTags int
	Learns  int
}

// MigrateCaseTags registers tags found on existing cases (provenance
// "system" for previously unknown names) and learns keyword weights
// from each case's text. Counts are additive, so re-running reinforces
// rather than duplicates.
func (s *Service) MigrateCaseTags(ctx context.Context) (MigrationResult, error) {
	all, err := s.cases.ListAll(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("list cases: %w", err)
	}

	var result MigrationResult
	for _, c := range all {
		if len(c.Tags) == 0 {
			continue
		}
		result.Cases++
		keywords := s.extract.Extract(c.Title + " " + c.Content)

		for _, name := range c.Tags {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}

			rec, err := s.store.GetByName(ctx, name)
			if errors.Is(err, domain.ErrTagNotFound) {
				rec, err = domain.NewTagRecord(name, domain.ProvenanceSystem)
				if err != nil {
					return result, err
				}
				if err := s.store.Create(ctx, rec); err != nil {
					return result, fmt.Errorf("register tag %q: %w", name, err)
				}
				result.NewTags++
			} else if err != nil {
				return result, err
			}

			rec.Learn(keywords)
			if err := s.store.Update(ctx, rec); err != nil {
				return result, fmt.Errorf("migrate tag %q: %w", name, err)
			}
			result.Learns++
		}
	}

	s.logger.Info("case tag migration finished",
		zap.Int("cases", result.Cases),
		zap.Int("new_tags", result.NewTags),
		zap.Int("learns", result.Learns))
	return result, nil
}
