// Package vsm implements the cached TF-IDF vector space model used to
// rank cases by textual similarity. Documents are keyword-joined
// strings (single-space separated); raw text never reaches this layer.
package vsm

import (
	"math"
	"strings"
)

// placeholder stands in for documents with no extractable tokens so a
// fit over a degenerate corpus still produces a vocabulary.
const placeholder = "empty"

// SparseVector is a TF-IDF vector keyed by vocabulary column.
// Transform produces L2-normalized vectors.
type SparseVector map[int]float64

// Vectorizer is a fitted TF-IDF vocabulary for one scope (title or
// content). Immutable once fit; serialized as explicit vocabulary and
// IDF weights so the cache format carries no implementation internals.
type Vectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	MinDF      int            `json:"min_df"`
}

// fitVectorizer builds a vocabulary over the given documents, keeping
// terms that appear in at least minDF documents. Reports ok=false when
// the resulting vocabulary is empty.
func fitVectorizer(docs []string, minDF int) (*Vectorizer, bool) {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, term := range strings.Fields(doc) {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	vocab := make(map[string]int)
	for term, count := range df {
		if count >= minDF {
			vocab[term] = len(vocab)
		}
	}
	if len(vocab) == 0 {
		return nil, false
	}

	// Smoothed IDF: ln((1+n)/(1+df)) + 1.
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for term, col := range vocab {
		idf[col] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	return &Vectorizer{Vocabulary: vocab, IDF: idf, MinDF: minDF}, true
}

// withFallback replaces empty documents with the placeholder token so
// the fit cannot fail for a non-empty corpus.
func withFallback(docs []string) []string {
	out := make([]string, len(docs))
	for i, doc := range docs {
		if strings.TrimSpace(doc) == "" {
			out[i] = placeholder
		} else {
			out[i] = doc
		}
	}
	return out
}

// Transform maps a keyword-joined document onto the fitted vocabulary
// as an L2-normalized sparse vector. Out-of-vocabulary terms are
// ignored; a document with no known terms yields an empty vector.
func (v *Vectorizer) Transform(doc string) SparseVector {
	tf := make(map[int]float64)
	for _, term := range strings.Fields(doc) {
		if col, ok := v.Vocabulary[term]; ok {
			tf[col]++
		}
	}

	vec := make(SparseVector, len(tf))
	var norm float64
	for col, count := range tf {
		w := count * v.IDF[col]
		vec[col] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

// TransformBatch maps every document with the fitted vocabulary.
func (v *Vectorizer) TransformBatch(docs []string) []SparseVector {
	vecs := make([]SparseVector, len(docs))
	for i, doc := range docs {
		vecs[i] = v.Transform(doc)
	}
	return vecs
}

// Cosine returns the cosine similarity of two sparse vectors in [0,1].
// Either vector being empty yields 0.
func Cosine(a, b SparseVector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot, na, nb float64
	for col, av := range a {
		na += av * av
		if bv, ok := b[col]; ok {
			dot += av * bv
		}
	}
	if dot == 0 {
		return 0
	}
	for _, bv := range b {
		nb += bv * bv
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// BatchCosine returns one similarity value per row.
func BatchCosine(target SparseVector, rows []SparseVector) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = Cosine(target, row)
	}
	return out
}
