package domain

// Capacity limits for neighbor lists: the cache stores the top 20
// matches per case, the API surface exposes only the top 5.
const (
	NeighborCacheSize = 20
	MaxSimilarResults = 5
)

// Neighbor is one entry in a case's cached neighbor list.
type Neighbor struct {
	CaseID int64   `json:"case_id"`
	Score  float64 `json:"score"`
}

// Match is a scored similar-case result on the query path, carrying
// the tags shared with the target (lowercased).
type Match struct {
	Case        CaseDocument
	Score       float64
	MatchedTags []string
}
