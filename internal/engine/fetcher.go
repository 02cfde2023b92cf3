package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talentops/stagetrack/internal/metrics"
	"github.com/talentops/stagetrack/internal/models"
)

// Outcome is the per-candidature result of a history fetch. Exactly one
// Outcome is produced per requested ID; a failed fetch carries its error and
// is excluded from correlation.
type Outcome struct {
	ID          string
	Candidature models.Candidature
	Err         error
}

// Failed reports whether the fetch was excluded.
func (o Outcome) Failed() bool { return o.Err != nil }

// fetchHistories retrieves stage histories for the given IDs in sequential
// waves of waveSize. Fetches within a wave run in parallel; the next wave
// only starts once the previous one has fully resolved, which caps load on
// the ATS. Individual failures never abort the wave.
func (e *Engine) fetchHistories(ctx context.Context, logger *slog.Logger, ids []string) []Outcome {
	outcomes := make([]Outcome, len(ids))

	for waveStart := 0; waveStart < len(ids); waveStart += waveSize {
		waveEnd := waveStart + waveSize
		if waveEnd > len(ids) {
			waveEnd = len(ids)
		}
		wave := ids[waveStart:waveEnd]

		var wg sync.WaitGroup
		for i, id := range wave {
			wg.Add(1)
			go func(slot int, id string) {
				defer wg.Done()
				candidature, err := e.client.FetchCandidature(ctx, id)
				outcomes[slot] = Outcome{ID: id, Candidature: candidature, Err: err}
			}(waveStart+i, id)
		}
		wg.Wait()

		for _, outcome := range outcomes[waveStart:waveEnd] {
			if outcome.Failed() {
				metrics.IncHistoryFetchFailure()
				logger.Warn("history fetch failed",
					slog.String("candidature_id", outcome.ID),
					slog.Any("error", outcome.Err),
				)
			}
		}
	}

	return outcomes
}
