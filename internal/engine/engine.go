// Package engine implements the stage-transition correlation queries. The
// ATS only exposes "search by current predicate" and "fetch one history", so
// answering "who entered stage X in month Y" means discovering the candidate
// set page by page, fetching histories in bounded waves, and reducing the
// histories against the month window.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talentops/stagetrack/internal/metrics"
	"github.com/talentops/stagetrack/internal/models"
	"github.com/talentops/stagetrack/internal/utils"
)

const (
	// searchPageSize is the page size used while discovering candidatures.
	searchPageSize = 100
	// waveSize caps how many history fetches run concurrently.
	waveSize = 10
)

// ATSClient defines the remote ATS operations the engine consumes.
type ATSClient interface {
	SearchCandidatures(ctx context.Context, conditions []models.FilterCondition, page, pageSize int) (models.SearchPage, error)
	FetchCandidature(ctx context.Context, id string) (models.Candidature, error)
	CurrentStageTotal(ctx context.Context, stageName string) (int, error)
}

// Engine answers stage-transition queries against the ATS.
type Engine struct {
	logger *slog.Logger
	client ATSClient
}

// New constructs an Engine.
func New(logger *slog.Logger, client ATSClient) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, client: client}
}

// ListTransitionsInWindow returns the candidatures that entered stageName
// during the given calendar month, at most one transition per candidature.
func (e *Engine) ListTransitionsInWindow(ctx context.Context, stageName string, year, month int) ([]models.StageTransition, error) {
	windowStart, windowEnd, err := utils.MonthWindow(year, month)
	if err != nil {
		return nil, utils.NewQueryError("stage_window", "invalid month", err)
	}

	queryID := uuid.NewString()
	logger := e.logger.With(
		slog.String("query_id", queryID),
		slog.String("stage", stageName),
		slog.Int("year", year),
		slog.Int("month", month),
	)
	logger.Info("stage window query started")

	ids, err := e.discover(ctx, stageName)
	if err != nil {
		return nil, fmt.Errorf("discover candidatures in stage %q: %w", stageName, err)
	}
	if len(ids) == 0 {
		logger.Info("no candidatures currently in stage")
		return []models.StageTransition{}, nil
	}
	logger.Info("discovery complete", slog.Int("candidatures", len(ids)))

	outcomes := e.fetchHistories(ctx, logger, ids)
	transitions := e.correlate(logger, stageName, windowStart, windowEnd, outcomes)

	logger.Info("stage window query complete", slog.Int("transitions", len(transitions)))
	return transitions, nil
}

// CountTransitionsInWindow counts the candidatures that entered stageName
// during the given month. Historical counts cannot be read off the search
// metadata, so this runs the full correlation pipeline.
func (e *Engine) CountTransitionsInWindow(ctx context.Context, stageName string, year, month int) (int, error) {
	transitions, err := e.ListTransitionsInWindow(ctx, stageName, year, month)
	if err != nil {
		return 0, err
	}
	return len(transitions), nil
}

// ListCurrentlyInStage returns one page of candidatures whose current stage
// is stageName.
func (e *Engine) ListCurrentlyInStage(ctx context.Context, stageName string, page, pageSize int) (models.SearchPage, error) {
	result, err := e.client.SearchCandidatures(ctx, models.StageEquals(stageName), page, pageSize)
	if err != nil {
		return models.SearchPage{}, fmt.Errorf("list candidatures in stage %q: %w", stageName, err)
	}
	return result, nil
}

// CountCurrentlyInStage counts candidatures whose current stage is stageName
// using only the search metadata.
func (e *Engine) CountCurrentlyInStage(ctx context.Context, stageName string) (int, error) {
	total, err := e.client.CurrentStageTotal(ctx, stageName)
	if err != nil {
		return 0, fmt.Errorf("count candidatures in stage %q: %w", stageName, err)
	}
	return total, nil
}

// discover drains the paginated search for candidatures currently in the
// stage. Any request error aborts discovery; partial ID sets are never
// returned.
func (e *Engine) discover(ctx context.Context, stageName string) ([]string, error) {
	conditions := models.StageEquals(stageName)

	var ids []string
	for page := 1; ; page++ {
		result, err := e.client.SearchCandidatures(ctx, conditions, page, searchPageSize)
		if err != nil {
			return nil, fmt.Errorf("search page %d: %w", page, err)
		}
		metrics.IncSearchPage()

		if len(result.Data) == 0 {
			break
		}
		for _, candidature := range result.Data {
			if candidature.ID != "" {
				ids = append(ids, candidature.ID)
			}
		}
		if !result.Meta.HasMore {
			break
		}
	}
	return ids, nil
}
