package vsm

import (
	"encoding/json"
	"fmt"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

// Corpora smaller than this fit with min-df 1; larger corpora use 2 to
// reduce vocabulary noise.
const smallCorpusSize = 5

// Model holds the two independently fitted vectorizers. Immutable once
// fit; a rebuild replaces it wholesale.
type Model struct {
	Title   *Vectorizer `json:"title"`
	Content *Vectorizer `json:"content"`
}

// Fit trains both scopes over keyword-joined title and content
// documents. It never fails for a non-empty corpus: a scope whose
// vocabulary comes out empty is refit over placeholder-padded
// documents with min-df 1.
func Fit(titles, contents []string) (*Model, error) {
	if len(titles) == 0 || len(titles) != len(contents) {
		return nil, fmt.Errorf("fit requires a non-empty corpus with matching scopes, got %d titles and %d contents", len(titles), len(contents))
	}

	minDF := 1
	if len(titles) >= smallCorpusSize {
		minDF = 2
	}

	return &Model{
		Title:   fitScope(titles, minDF),
		Content: fitScope(contents, minDF),
	}, nil
}

func fitScope(docs []string, minDF int) *Vectorizer {
	if v, ok := fitVectorizer(docs, minDF); ok {
		return v
	}
	// Degenerate scope: pad empties and drop the frequency floor.
	v, _ := fitVectorizer(withFallback(docs), 1)
	return v
}

// Fitted reports whether both scopes hold a vocabulary.
func (m *Model) Fitted() bool {
	return m != nil && m.Title != nil && m.Content != nil
}

// TransformTitle maps a keyword-joined title with the title vocabulary.
func (m *Model) TransformTitle(doc string) (SparseVector, error) {
	if !m.Fitted() {
		return nil, domain.ErrModelNotFitted
	}
	return m.Title.Transform(doc), nil
}

// TransformContent maps a keyword-joined content with the content vocabulary.
func (m *Model) TransformContent(doc string) (SparseVector, error) {
	if !m.Fitted() {
		return nil, domain.ErrModelNotFitted
	}
	return m.Content.Transform(doc), nil
}

// Marshal serializes the fitted state as JSON.
func (m *Model) Marshal() ([]byte, error) {
	if !m.Fitted() {
		return nil, domain.ErrModelNotFitted
	}
	return json.Marshal(m)
}

// Unmarshal deserializes a model. Any structural defect is an error;
// callers treat it as a cache miss.
func Unmarshal(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if !m.Fitted() {
		return nil, fmt.Errorf("decode model: missing scope state")
	}
	if err := validateScope(m.Title); err != nil {
		return nil, fmt.Errorf("decode model: title %w", err)
	}
	if err := validateScope(m.Content); err != nil {
		return nil, fmt.Errorf("decode model: content %w", err)
	}
	return &m, nil
}

// validateScope checks that the vocabulary is a bijection onto the IDF
// columns, so Transform can index IDF by column without bounds checks.
func validateScope(v *Vectorizer) error {
	if len(v.Vocabulary) != len(v.IDF) {
		return fmt.Errorf("vocabulary/idf size mismatch")
	}
	seen := make(map[int]struct{}, len(v.Vocabulary))
	for term, col := range v.Vocabulary {
		if col < 0 || col >= len(v.IDF) {
			return fmt.Errorf("column %d for term %q out of range", col, term)
		}
		if _, dup := seen[col]; dup {
			return fmt.Errorf("duplicate column %d", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}
