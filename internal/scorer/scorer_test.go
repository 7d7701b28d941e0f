package scorer

import (
	"math"
	"testing"

	"github.com/rokysan7/Internal-SYS/internal/domain"
)

func TestTagSimilarity_Identical(t *testing.T) {
	if sim := TagSimilarity([]string{"결제", "오류"}, []string{"결제", "오류"}); sim != 1.0 {
		t.Errorf("identical tags = %v, want 1.0", sim)
	}
}

func TestTagSimilarity_BothEmpty(t *testing.T) {
	if sim := TagSimilarity(nil, nil); sim != 0.0 {
		t.Errorf("both empty = %v, want 0.0", sim)
	}
}

func TestTagSimilarity_NoOverlap(t *testing.T) {
	if sim := TagSimilarity([]string{"결제", "오류"}, []string{"로그인", "인증"}); sim != 0.0 {
		t.Errorf("disjoint tags = %v, want 0.0", sim)
	}
}

func TestTagSimilarity_Partial(t *testing.T) {
	sim := TagSimilarity([]string{"결제", "오류"}, []string{"결제", "환불"})
	if math.Abs(sim-1.0/3.0) > 0.01 {
		t.Errorf("partial overlap = %v, want 1/3", sim)
	}
}

func TestTagSimilarity_CaseInsensitive(t *testing.T) {
	if sim := TagSimilarity([]string{"VPN"}, []string{"vpn"}); sim != 1.0 {
		t.Errorf("case-insensitive overlap = %v, want 1.0", sim)
	}
}

func TestCombined_Weights(t *testing.T) {
	got := Combined(1.0, 0.5, 0.3)
	want := 1.0*0.5 + 0.5*0.3 + 0.3*0.2
	if math.Abs(got-want) > 0.001 {
		t.Errorf("Combined = %v, want %v", got, want)
	}
}

func TestCombined_Zero(t *testing.T) {
	if got := Combined(0, 0, 0); got != 0.0 {
		t.Errorf("all-zero combined = %v, want 0.0", got)
	}
}

func TestCombined_Monotonic(t *testing.T) {
	base := Combined(0.4, 0.4, 0.4)
	if Combined(0.5, 0.4, 0.4) <= base {
		t.Error("not increasing in tag score")
	}
	if Combined(0.4, 0.5, 0.4) <= base {
		t.Error("not increasing in title score")
	}
	if Combined(0.4, 0.4, 0.5) <= base {
		t.Error("not increasing in content score")
	}
}

func caseDoc(id int64, tags ...string) domain.CaseDocument {
	return domain.CaseDocument{ID: id, Tags: tags}
}

func TestFindTopMatches_Empty(t *testing.T) {
	if got := FindTopMatches([]string{"결제"}, nil, 5, 0.3); got != nil {
		t.Errorf("zero candidates = %v, want nil", got)
	}
}

func TestFindTopMatches_ThresholdAndOrder(t *testing.T) {
	candidates := []Candidate{
		{Case: caseDoc(1), TitleCosine: 0.2},                    // 0.06, below threshold
		{Case: caseDoc(2, "결제"), TitleCosine: 0.9},             // 0.77
		{Case: caseDoc(3, "결제", "오류"), ContentCosine: 0.5},     // combined with tag overlap
		{Case: caseDoc(4, "로그인"), TitleCosine: 0.1},            // low
	}
	target := []string{"결제"}

	matches := FindTopMatches(target, candidates, 5, 0.3)
	for _, m := range matches {
		if m.Score < 0.3 {
			t.Errorf("score %v below threshold returned", m.Score)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("matches not sorted descending")
		}
	}
	if len(matches) == 0 || matches[0].Case.ID != 2 {
		t.Errorf("best match = %+v, want case 2", matches)
	}
}

func TestFindTopMatches_TopN(t *testing.T) {
	var candidates []Candidate
	for i := int64(1); i <= 10; i++ {
		candidates = append(candidates, Candidate{Case: caseDoc(i, "결제"), TitleCosine: 0.5})
	}
	matches := FindTopMatches([]string{"결제"}, candidates, 3, 0.3)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
}

func TestFindTopMatches_StableTies(t *testing.T) {
	candidates := []Candidate{
		{Case: caseDoc(7, "결제"), TitleCosine: 0.4},
		{Case: caseDoc(3, "결제"), TitleCosine: 0.4},
		{Case: caseDoc(9, "결제"), TitleCosine: 0.4},
	}
	matches := FindTopMatches([]string{"결제"}, candidates, 5, 0)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	ids := [3]int64{matches[0].Case.ID, matches[1].Case.ID, matches[2].Case.ID}
	if ids != [3]int64{7, 3, 9} {
		t.Errorf("tie order changed: %v", ids)
	}
}

func TestFindTopMatches_MatchedTags(t *testing.T) {
	candidates := []Candidate{
		{Case: caseDoc(1, "결제", "VPN"), TitleCosine: 0.9},
	}
	matches := FindTopMatches([]string{"결제", "vpn", "오류"}, candidates, 5, 0.3)
	if len(matches) != 1 {
		t.Fatalf("got %d matches", len(matches))
	}
	got := matches[0].MatchedTags
	if len(got) != 2 || got[0] != "결제" || got[1] != "vpn" {
		t.Errorf("matched tags = %v", got)
	}
}

func TestSharedTags_Empty(t *testing.T) {
	if got := SharedTags(nil, []string{"a"}); len(got) != 0 {
		t.Errorf("SharedTags = %v, want empty", got)
	}
}
