package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/talentops/stagetrack/internal/models"
)

// fakeATS serves canned search pages and candidatures for engine tests.
type fakeATS struct {
	mu sync.Mutex

	pages        []models.SearchPage
	searchErr    error
	searchCalls  int
	candidatures map[string]models.Candidature
	fetchErr     map[string]error
	fetchCalls   int
	total        int
	totalErr     error
}

func (f *fakeATS) SearchCandidatures(_ context.Context, _ []models.FilterCondition, page, pageSize int) (models.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	if f.searchErr != nil {
		return models.SearchPage{}, f.searchErr
	}
	if pageSize != searchPageSize {
		return models.SearchPage{}, fmt.Errorf("unexpected page size %d", pageSize)
	}
	if page < 1 || page > len(f.pages) {
		return models.SearchPage{}, nil
	}
	return f.pages[page-1], nil
}

func (f *fakeATS) FetchCandidature(_ context.Context, id string) (models.Candidature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if err, ok := f.fetchErr[id]; ok {
		return models.Candidature{}, err
	}
	if c, ok := f.candidatures[id]; ok {
		return c, nil
	}
	return models.Candidature{ID: id}, nil
}

func (f *fakeATS) CurrentStageTotal(_ context.Context, _ string) (int, error) {
	if f.totalErr != nil {
		return 0, f.totalErr
	}
	return f.total, nil
}

func summaries(ids ...string) []models.CandidatureSummary {
	out := make([]models.CandidatureSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CandidatureSummary{ID: id})
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestListTransitionsDrainsAllPages(t *testing.T) {
	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("cand-%03d", i)
	}

	fake := &fakeATS{
		pages: []models.SearchPage{
			{Data: summaries(ids[:100]...), Meta: models.SearchMeta{HasMore: true}},
			{Data: summaries(ids[100:200]...), Meta: models.SearchMeta{HasMore: true}},
			{Data: summaries(ids[200:]...), Meta: models.SearchMeta{HasMore: false}},
		},
		candidatures: map[string]models.Candidature{},
	}
	for _, id := range ids {
		fake.candidatures[id] = models.Candidature{
			ID: id,
			StagesHistory: []models.StageHistoryEntry{
				{StageName: "Contratado", StartAt: "2025-09-10T09:00:00Z"},
			},
		}
	}

	eng := New(testLogger(), fake)
	transitions, err := eng.ListTransitionsInWindow(context.Background(), "Contratado", 2025, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.searchCalls != 3 {
		t.Errorf("search calls = %d, want 3", fake.searchCalls)
	}
	if fake.fetchCalls != 250 {
		t.Errorf("fetch calls = %d, want 250", fake.fetchCalls)
	}
	if len(transitions) != 250 {
		t.Errorf("transitions = %d, want 250", len(transitions))
	}
}

func TestListTransitionsEmptyStage(t *testing.T) {
	fake := &fakeATS{
		pages: []models.SearchPage{{Data: nil, Meta: models.SearchMeta{HasMore: false}}},
	}

	eng := New(testLogger(), fake)
	transitions, err := eng.ListTransitionsInWindow(context.Background(), "Contratado", 2025, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transitions == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(transitions) != 0 {
		t.Errorf("transitions = %d, want 0", len(transitions))
	}
	if fake.fetchCalls != 0 {
		t.Errorf("fetch calls = %d, want 0", fake.fetchCalls)
	}
}

func TestListTransitionsSearchErrorIsFatal(t *testing.T) {
	wantErr := errors.New("boom")
	fake := &fakeATS{searchErr: wantErr}

	eng := New(testLogger(), fake)
	if _, err := eng.ListTransitionsInWindow(context.Background(), "Contratado", 2025, 9); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
	if fake.fetchCalls != 0 {
		t.Errorf("fetch calls = %d, want 0 after search failure", fake.fetchCalls)
	}
}

func TestListTransitionsRejectsBadMonth(t *testing.T) {
	eng := New(testLogger(), &fakeATS{})
	if _, err := eng.ListTransitionsInWindow(context.Background(), "Contratado", 2025, 13); err == nil {
		t.Fatal("expected error for month 13")
	}
}

func TestCountAgreesWithList(t *testing.T) {
	fake := &fakeATS{
		pages: []models.SearchPage{
			{Data: summaries("a", "b", "c"), Meta: models.SearchMeta{HasMore: false}},
		},
		candidatures: map[string]models.Candidature{
			"a": {ID: "a", StagesHistory: []models.StageHistoryEntry{
				{StageName: "Contratado", StartAt: "2025-09-01T00:00:00Z"},
			}},
			"b": {ID: "b", StagesHistory: []models.StageHistoryEntry{
				{StageName: "Contratado", StartAt: "2025-08-31T23:59:59Z"},
			}},
			"c": {ID: "c", StagesHistory: []models.StageHistoryEntry{
				{StageName: "Contratado", StartAt: "2025-09-30T23:59:59Z"},
			}},
		},
	}

	eng := New(testLogger(), fake)
	transitions, err := eng.ListTransitionsInWindow(context.Background(), "Contratado", 2025, 9)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	count, err := eng.CountTransitionsInWindow(context.Background(), "Contratado", 2025, 9)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(transitions) {
		t.Errorf("count = %d, list = %d, want equal", count, len(transitions))
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (only September entries)", count)
	}
}

func TestCountCurrentlyInStage(t *testing.T) {
	eng := New(testLogger(), &fakeATS{total: 42})
	count, err := eng.CountCurrentlyInStage(context.Background(), "Entrevista")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("count = %d, want 42", count)
	}
}

func TestListCurrentlyInStagePropagatesError(t *testing.T) {
	wantErr := errors.New("unavailable")
	eng := New(testLogger(), &fakeATS{searchErr: wantErr})
	if _, err := eng.ListCurrentlyInStage(context.Background(), "Entrevista", 1, 50); !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want wrapped %v", err, wantErr)
	}
}
