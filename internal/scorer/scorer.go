// Package scorer combines the tag-overlap and cosine signals into one
// ranked similarity score.
package scorer

import (
	"sort"
	"strings"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// Combined-score weights. They sum to 1.0.
const (
	WeightTag     = 0.5
	WeightTitle   = 0.3
	WeightContent = 0.2

	// DefaultThreshold is the minimum combined score a match must reach.
	DefaultThreshold = 0.3
)

// Candidate pairs a case with its precomputed cosine sub-scores
// against the query.
type Candidate struct {
	Case          domain.CaseDocument
	TitleCosine   float64
	ContentCosine float64
}

// TagSimilarity is the case-insensitive Jaccard index of two tag
// lists. Both lists empty is defined as 0.0, not 1.0, so "no tags"
// never reads as a perfect match.
func TagSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := lowerSet(a)
	setB := lowerSet(b)

	union := len(setA)
	inter := 0
	for t := range setB {
		if _, ok := setA[t]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Combined is the weighted sum 0.5·tag + 0.3·title + 0.2·content.
func Combined(tagSim, titleSim, contentSim float64) float64 {
	return tagSim*WeightTag + titleSim*WeightTitle + contentSim*WeightContent
}

// FindTopMatches scores every candidate against the target tags, drops
// scores below threshold, and returns at most topN matches sorted by
// score descending. Ties keep the candidates' original relative order.
func FindTopMatches(targetTags []string, candidates []Candidate, topN int, threshold float64) []domain.Match {
	if len(candidates) == 0 || topN <= 0 {
		return nil
	}

	matches := make([]domain.Match, 0, len(candidates))
	for _, c := range candidates {
		tagSim := TagSimilarity(targetTags, c.Case.Tags)
		score := Combined(tagSim, c.TitleCosine, c.ContentCosine)
		if score < threshold {
			continue
		}
		matches = append(matches, domain.Match{
			Case:        c.Case,
			Score:       score,
			MatchedTags: SharedTags(targetTags, c.Case.Tags),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches
}

// SharedTags returns the lowercased tags present in both lists, in
// a's order.
func SharedTags(a, b []string) []string {
	setB := lowerSet(b)
	var shared []string
	seen := make(map[string]struct{})
	for _, t := range a {
		lt := strings.ToLower(strings.TrimSpace(t))
		if _, ok := setB[lt]; !ok {
			continue
		}
		if _, dup := seen[lt]; dup {
			continue
		}
		seen[lt] = struct{}{}
		shared = append(shared, lt)
	}
	return shared
}

func lowerSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		lt := strings.ToLower(strings.TrimSpace(t))
		if lt != "" {
			set[lt] = struct{}{}
		}
	}
	return set
}
