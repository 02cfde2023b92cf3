package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/talentops/stagetrack/internal/models"
)

// countingATS tracks the number of in-flight history fetches.
type countingATS struct {
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	failing     map[string]error
	mu          sync.Mutex
	fetched     []string
}

func (c *countingATS) SearchCandidatures(context.Context, []models.FilterCondition, int, int) (models.SearchPage, error) {
	return models.SearchPage{}, nil
}

func (c *countingATS) CurrentStageTotal(context.Context, string) (int, error) {
	return 0, nil
}

func (c *countingATS) FetchCandidature(_ context.Context, id string) (models.Candidature, error) {
	current := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		max := c.maxInFlight.Load()
		if current <= max || c.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}

	c.mu.Lock()
	c.fetched = append(c.fetched, id)
	c.mu.Unlock()

	if err, ok := c.failing[id]; ok {
		return models.Candidature{}, err
	}
	return models.Candidature{ID: id}, nil
}

func TestFetchHistoriesCapsConcurrency(t *testing.T) {
	ids := make([]string, 37)
	for i := range ids {
		ids[i] = fmt.Sprintf("cand-%02d", i)
	}

	ats := &countingATS{}
	eng := New(testLogger(), ats)

	outcomes := eng.fetchHistories(context.Background(), testLogger(), ids)
	if len(outcomes) != len(ids) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(ids))
	}
	if max := ats.maxInFlight.Load(); max > waveSize {
		t.Errorf("max in-flight fetches = %d, want <= %d", max, waveSize)
	}
	if len(ats.fetched) != len(ids) {
		t.Errorf("fetched = %d, want %d", len(ats.fetched), len(ids))
	}
}

func TestFetchHistoriesOneOutcomePerID(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	eng := New(testLogger(), &countingATS{})

	outcomes := eng.fetchHistories(context.Background(), testLogger(), ids)
	for i, outcome := range outcomes {
		if outcome.ID != ids[i] {
			t.Errorf("outcome[%d].ID = %q, want %q", i, outcome.ID, ids[i])
		}
	}
}

func TestFetchHistoriesFailuresDoNotAbortWave(t *testing.T) {
	ids := make([]string, 10)
	failing := map[string]error{}
	for i := range ids {
		ids[i] = fmt.Sprintf("cand-%02d", i)
	}
	failing[ids[2]] = errors.New("timeout")
	failing[ids[5]] = errors.New("timeout")
	failing[ids[8]] = errors.New("500")

	eng := New(testLogger(), &countingATS{failing: failing})
	outcomes := eng.fetchHistories(context.Background(), testLogger(), ids)

	var ok, failed int
	for _, outcome := range outcomes {
		if outcome.Failed() {
			failed++
		} else {
			ok++
		}
	}
	if failed != 3 {
		t.Errorf("failed = %d, want 3", failed)
	}
	if ok != 7 {
		t.Errorf("succeeded = %d, want 7", ok)
	}
}
