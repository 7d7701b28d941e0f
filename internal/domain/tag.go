package domain

import (
	"strings"
	"time"
)

// Provenance marks where a tag record came from.
type Provenance string

const (
	// ProvenanceSeed marks pre-loaded tags. Never deleted by cleanup.
	ProvenanceSeed Provenance = "seed"
	// ProvenanceSystem marks tags auto-created during migration.
	ProvenanceSystem Provenance = "system"
	// ProvenanceUser marks tags created through live tagging/learning.
	ProvenanceUser Provenance = "user"
)

// TagRecord is a learned tag with its keyword-weight map.
// Identity is the case-insensitive name; the stored name keeps the
// display form of the first use.
type TagRecord struct {
	Name           string
	KeywordWeights map[string]int
	UsageCount     int
	Provenance     Provenance
	CreatedAt      time.Time
}

// NewTagRecord creates a tag record for the given display name.
// The name is stripped; a blank name yields ErrBlankTagName.
func NewTagRecord(name string, prov Provenance) (TagRecord, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return TagRecord{}, ErrBlankTagName
	}
	return TagRecord{
		Name:           n,
		KeywordWeights: map[string]int{},
		Provenance:     prov,
	}, nil
}

// Learn increments every keyword's weight by one, creating missing
// entries at weight 1, and bumps the usage counter by exactly one.
func (t *TagRecord) Learn(keywords []string) {
	t.UsageCount++
	if t.KeywordWeights == nil {
		t.KeywordWeights = map[string]int{}
	}
	for _, kw := range keywords {
		t.KeywordWeights[kw]++
	}
}

// PruneWeakKeywords drops keyword entries with weight <= 1 and
// returns how many were removed.
func (t *TagRecord) PruneWeakKeywords() int {
	removed := 0
	for kw, w := range t.KeywordWeights {
		if w <= 1 {
			delete(t.KeywordWeights, kw)
			removed++
		}
	}
	return removed
}

// Deletable reports whether cleanup may remove this tag.
func (t *TagRecord) Deletable() bool {
	return t.UsageCount == 0 && t.Provenance != ProvenanceSeed
}
