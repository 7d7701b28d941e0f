package tags

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/domain"
	"github.com/rokysan7/Internal-SYS/internal/keyword"
)

// memTagStore is an in-memory TagStore keyed by lowercased name.
type memTagStore struct {
	recs      map[string]domain.TagRecord
	listCalls int
}

func newMemTagStore() *memTagStore {
	return &memTagStore{recs: map[string]domain.TagRecord{}}
}

func copyRecord(rec domain.TagRecord) domain.TagRecord {
	weights := make(map[string]int, len(rec.KeywordWeights))
	for kw, w := range rec.KeywordWeights {
		weights[kw] = w
	}
	rec.KeywordWeights = weights
	return rec
}

func (m *memTagStore) GetByName(_ context.Context, name string) (domain.TagRecord, error) {
	rec, ok := m.recs[strings.ToLower(name)]
	if !ok {
		return domain.TagRecord{}, domain.ErrTagNotFound
	}
	return copyRecord(rec), nil
}

func (m *memTagStore) Create(_ context.Context, rec domain.TagRecord) error {
	key := strings.ToLower(rec.Name)
	if _, ok := m.recs[key]; ok {
		return errors.New("duplicate tag name")
	}
	m.recs[key] = copyRecord(rec)
	return nil
}

func (m *memTagStore) Update(_ context.Context, rec domain.TagRecord) error {
	key := strings.ToLower(rec.Name)
	if _, ok := m.recs[key]; !ok {
		return domain.ErrTagNotFound
	}
	m.recs[key] = copyRecord(rec)
	return nil
}

func (m *memTagStore) Delete(_ context.Context, name string) error {
	key := strings.ToLower(name)
	if _, ok := m.recs[key]; !ok {
		return domain.ErrTagNotFound
	}
	delete(m.recs, key)
	return nil
}

func (m *memTagStore) ListAll(_ context.Context) ([]domain.TagRecord, error) {
	m.listCalls++
	out := make([]domain.TagRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memTagStore) SearchPrefix(_ context.Context, prefix string, limit int) ([]domain.TagRecord, error) {
	p := strings.ToLower(prefix)
	var out []domain.TagRecord
	for _, rec := range m.recs {
		if strings.HasPrefix(strings.ToLower(rec.Name), p) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTagStore) put(t *testing.T, name string, weights map[string]int, usage int, prov domain.Provenance) {
	t.Helper()
	rec, err := domain.NewTagRecord(name, prov)
	if err != nil {
		t.Fatalf("NewTagRecord(%q): %v", name, err)
	}
	for kw, w := range weights {
		rec.KeywordWeights[kw] = w
	}
	rec.UsageCount = usage
	m.recs[strings.ToLower(name)] = rec
}

type staticCases struct {
	docs []domain.CaseDocument
}

func (s *staticCases) ListAll(_ context.Context) ([]domain.CaseDocument, error) {
	return s.docs, nil
}

func newTestService(store TagStore, cases CaseReader, opts Options) *Service {
	return New(store, cases, keyword.NewExtractor(), opts, zap.NewNop())
}

func TestLearnIncrementsUsageOnce(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})

	n, err := svc.Learn(context.Background(), []string{"결제"}, "결제 오류 발생", "카드 결제 실패")
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if n == 0 {
		t.Fatal("expected keywords to be extracted")
	}

	rec, err := store.GetByName(context.Background(), "결제")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if rec.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", rec.UsageCount)
	}
	if rec.Provenance != domain.ProvenanceUser {
		t.Errorf("provenance = %q, want %q", rec.Provenance, domain.ProvenanceUser)
	}
	for _, kw := range []string{"결제", "오류", "카드"} {
		if rec.KeywordWeights[kw] < 1 {
			t.Errorf("keyword %q weight = %d, want >= 1", kw, rec.KeywordWeights[kw])
		}
	}
}

func TestLearnRepeatedReinforces(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Learn(ctx, []string{"결제"}, "결제 오류", ""); err != nil {
			t.Fatalf("Learn: %v", err)
		}
	}

	rec, err := store.GetByName(ctx, "결제")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if rec.UsageCount != 3 {
		t.Errorf("usage count = %d, want 3", rec.UsageCount)
	}
	if rec.KeywordWeights["결제"] != 3 {
		t.Errorf("weight for 결제 = %d, want 3", rec.KeywordWeights["결제"])
	}
}

func TestLearnNoKeywordsLeavesStoreUntouched(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})

	n, err := svc.Learn(context.Background(), []string{"결제"}, "", "")
	if err != nil {
		t.Fatalf("Learn: %v", err)
	}
	if n != 0 {
		t.Errorf("keyword count = %d, want 0", n)
	}
	if len(store.recs) != 0 {
		t.Errorf("store has %d tags, want 0", len(store.recs))
	}
}

func TestLearnMultipleTags(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})
	ctx := context.Background()

	if _, err := svc.Learn(ctx, []string{"결제", "환불"}, "결제 취소 요청", ""); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	for _, name := range []string{"결제", "환불"} {
		rec, err := store.GetByName(ctx, name)
		if err != nil {
			t.Fatalf("GetByName(%q): %v", name, err)
		}
		if rec.UsageCount != 1 {
			t.Errorf("tag %q usage = %d, want 1", name, rec.UsageCount)
		}
	}
}

func TestGetOrCreateBlankName(t *testing.T) {
	svc := newTestService(newMemTagStore(), &staticCases{}, Options{})

	_, err := svc.GetOrCreate(context.Background(), "   ")
	if !errors.Is(err, domain.ErrBlankTagName) {
		t.Fatalf("error = %v, want ErrBlankTagName", err)
	}
}

func TestGetOrCreateCaseInsensitive(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "Login", map[string]int{"login": 2}, 4, domain.ProvenanceUser)
	svc := newTestService(store, &staticCases{}, Options{})

	rec, err := svc.GetOrCreate(context.Background(), "login")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if rec.Name != "Login" {
		t.Errorf("name = %q, want existing display form %q", rec.Name, "Login")
	}
	if rec.UsageCount != 4 {
		t.Errorf("usage = %d, want 4", rec.UsageCount)
	}
}

func TestSuggestRanksByNormalizedWeight(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "로그인", map[string]int{"로그인": 5, "인증": 3}, 10, domain.ProvenanceSeed)
	store.put(t, "인증", map[string]int{"로그인": 2, "실패": 1}, 1, domain.ProvenanceUser)
	store.put(t, "네트워크", map[string]int{"vpn": 3}, 2, domain.ProvenanceSeed)
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Suggest(context.Background(), "로그인 실패", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2: %+v", len(got), got)
	}
	// 인증: (2+1)/1 = 3.0 beats 로그인: 5/10 = 0.5.
	if got[0].Name != "인증" || got[1].Name != "로그인" {
		t.Errorf("order = [%s %s], want [인증 로그인]", got[0].Name, got[1].Name)
	}
	if got[0].Score != 3.0 {
		t.Errorf("top score = %v, want 3.0", got[0].Score)
	}
	if got[1].Score != 0.5 {
		t.Errorf("second score = %v, want 0.5", got[1].Score)
	}
}

func TestSuggestZeroUsageCountsAsOne(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "에러", map[string]int{"오류": 4}, 0, domain.ProvenanceSeed)
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Suggest(context.Background(), "오류 발생", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if got[0].Score != 4.0 {
		t.Errorf("score = %v, want 4.0", got[0].Score)
	}
}

func TestSuggestRoundsScoreToTwoDecimals(t *testing.T) {
	store := newMemTagStore()
	// 1/3 would otherwise surface as 0.3333...
	store.put(t, "로그인", map[string]int{"로그인": 1}, 3, domain.ProvenanceUser)
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Suggest(context.Background(), "로그인 오류", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d suggestions, want 1", len(got))
	}
	if got[0].Score != 0.33 {
		t.Errorf("score = %v, want 0.33", got[0].Score)
	}
}

func TestSuggestNoKeywordsSkipsStore(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Suggest(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if store.listCalls != 0 {
		t.Errorf("ListAll called %d times, want 0", store.listCalls)
	}
}

func TestSuggestTruncatesToTopK(t *testing.T) {
	store := newMemTagStore()
	names := []string{"결제", "환불", "카드", "취소", "청구"}
	for i, name := range names {
		store.put(t, name, map[string]int{"결제": i + 1}, 1, domain.ProvenanceUser)
	}
	svc := newTestService(store, &staticCases{}, Options{SuggestTopK: 2})

	got, err := svc.Suggest(context.Background(), "결제 문의", "")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d suggestions, want 2", len(got))
	}
	if got[0].Name != "청구" {
		t.Errorf("top suggestion = %q, want 청구", got[0].Name)
	}
}

func TestSearchBlankPrefix(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "로그인", nil, 1, domain.ProvenanceSeed)
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestSearchMostUsedFirst(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "로그인", nil, 2, domain.ProvenanceSeed)
	store.put(t, "로그", nil, 9, domain.ProvenanceUser)
	store.put(t, "결제", nil, 5, domain.ProvenanceUser)
	svc := newTestService(store, &staticCases{}, Options{})

	got, err := svc.Search(context.Background(), "로그")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tags, want 2", len(got))
	}
	if got[0].Name != "로그" || got[1].Name != "로그인" {
		t.Errorf("order = [%s %s], want [로그 로그인]", got[0].Name, got[1].Name)
	}
}

func TestCleanup(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "에러", map[string]int{"오류": 1}, 0, domain.ProvenanceSeed)
	store.put(t, "임시", map[string]int{"기타": 3}, 0, domain.ProvenanceUser)
	store.put(t, "결제", map[string]int{"결제": 4, "카드": 1, "취소": 1}, 6, domain.ProvenanceUser)
	svc := newTestService(store, &staticCases{}, Options{})
	ctx := context.Background()

	result, err := svc.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.TagsRemoved != 1 {
		t.Errorf("tags removed = %d, want 1", result.TagsRemoved)
	}
	if result.KeywordsRemoved != 3 {
		t.Errorf("keywords removed = %d, want 3", result.KeywordsRemoved)
	}

	if _, err := store.GetByName(ctx, "임시"); !errors.Is(err, domain.ErrTagNotFound) {
		t.Error("zero-usage user tag survived cleanup")
	}
	if _, err := store.GetByName(ctx, "에러"); err != nil {
		t.Errorf("seed tag was deleted: %v", err)
	}

	rec, err := store.GetByName(ctx, "결제")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if len(rec.KeywordWeights) != 1 || rec.KeywordWeights["결제"] != 4 {
		t.Errorf("weights after prune = %v, want only 결제:4", rec.KeywordWeights)
	}
}

func TestCleanupEmptyStore(t *testing.T) {
	svc := newTestService(newMemTagStore(), &staticCases{}, Options{})

	result, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result != (CleanupResult{}) {
		t.Errorf("result = %+v, want zero", result)
	}
}

func TestSeedDefaults(t *testing.T) {
	store := newMemTagStore()
	svc := newTestService(store, &staticCases{}, Options{})
	ctx := context.Background()

	created, skipped, err := svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	if created != len(seedTags) || skipped != 0 {
		t.Errorf("created=%d skipped=%d, want created=%d skipped=0", created, skipped, len(seedTags))
	}

	rec, err := store.GetByName(ctx, "로그인")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if rec.Provenance != domain.ProvenanceSeed {
		t.Errorf("provenance = %q, want seed", rec.Provenance)
	}
	if rec.KeywordWeights["로그인"] != 5 {
		t.Errorf("weight for 로그인 = %d, want 5", rec.KeywordWeights["로그인"])
	}

	// Re-running skips everything.
	created, skipped, err = svc.SeedDefaults(ctx)
	if err != nil {
		t.Fatalf("SeedDefaults rerun: %v", err)
	}
	if created != 0 || skipped != len(seedTags) {
		t.Errorf("rerun created=%d skipped=%d, want created=0 skipped=%d", created, skipped, len(seedTags))
	}
}

func TestMigrateCaseTags(t *testing.T) {
	store := newMemTagStore()
	store.put(t, "결제", map[string]int{"결제": 2}, 3, domain.ProvenanceUser)
	cases := &staticCases{docs: []domain.CaseDocument{
		{ID: 1, Title: "결제 오류", Content: "카드 결제 실패", Tags: []string{"결제"}},
		{ID: 2, Title: "급여 문의", Content: "", Tags: []string{"급여"}},
		{ID: 3, Title: "태그 없는 문의", Content: ""},
	}}
	svc := newTestService(store, cases, Options{})
	ctx := context.Background()

	result, err := svc.MigrateCaseTags(ctx)
	if err != nil {
		t.Fatalf("MigrateCaseTags: %v", err)
	}
	if result.Cases != 2 {
		t.Errorf("cases = %d, want 2", result.Cases)
	}
	if result.NewTags != 1 {
		t.Errorf("new tags = %d, want 1", result.NewTags)
	}
	if result.Learns != 2 {
		t.Errorf("learns = %d, want 2", result.Learns)
	}

	rec, err := store.GetByName(ctx, "급여")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if rec.Provenance != domain.ProvenanceSystem {
		t.Errorf("provenance = %q, want system", rec.Provenance)
	}
	if rec.UsageCount != 1 {
		t.Errorf("usage = %d, want 1", rec.UsageCount)
	}
	if rec.KeywordWeights["급여"] < 1 {
		t.Errorf("weight for 급여 = %d, want >= 1", rec.KeywordWeights["급여"])
	}

	existing, err := store.GetByName(ctx, "결제")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if existing.UsageCount != 4 {
		t.Errorf("existing usage = %d, want 4", existing.UsageCount)
	}
}
