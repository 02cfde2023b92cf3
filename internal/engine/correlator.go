package engine

import (
	"log/slog"
	"time"

	"github.com/talentops/stagetrack/internal/models"
	"github.com/talentops/stagetrack/internal/utils"
)

// correlate reduces fetched histories into stage transitions inside the
// half-open window [windowStart, windowEnd). Each history is scanned in the
// order the ATS returned it, and the first entry matching both the stage
// name (case-sensitive) and the window yields that candidature's single
// transition.
//
// The ATS does not document that stages_history is chronologically ordered;
// scanning in returned order and stopping at the first qualifying entry
// mirrors how the history endpoint has always behaved in practice.
func (e *Engine) correlate(logger *slog.Logger, stageName string, windowStart, windowEnd time.Time, outcomes []Outcome) []models.StageTransition {
	transitions := make([]models.StageTransition, 0)
	seen := make(map[string]struct{}, len(outcomes))

	for _, outcome := range outcomes {
		if outcome.Failed() {
			continue
		}
		candidature := outcome.Candidature
		if _, dup := seen[candidature.ID]; dup {
			continue
		}

		for _, entry := range candidature.StagesHistory {
			if entry.StageName != stageName {
				continue
			}
			changedAt, err := utils.ParseStageTimestamp(entry.StartAt)
			if err != nil {
				logger.Warn("skipping history entry with unparsable timestamp",
					slog.String("candidature_id", candidature.ID),
					slog.String("start_at", entry.StartAt),
				)
				continue
			}
			if !utils.InWindow(changedAt, windowStart, windowEnd) {
				continue
			}

			seen[candidature.ID] = struct{}{}
			transitions = append(transitions, models.StageTransition{
				CandidatureID: candidature.ID,
				CandidateID:   candidature.CandidateID,
				JobID:         candidature.JobID,
				StageName:     stageName,
				ChangedAt:     changedAt,
				Candidature:   candidature.Raw,
			})
			break
		}
	}

	return transitions
}
