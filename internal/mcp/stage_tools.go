package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/talentops/stagetrack/internal/models"
)

// StageWindowInput identifies a pipeline stage and a calendar month.
type StageWindowInput struct {
	StageName string `json:"stage_name" jsonschema:"exact pipeline stage name, case-sensitive"`
	Year      int    `json:"year" jsonschema:"calendar year, e.g. 2025"`
	Month     int    `json:"month" jsonschema:"calendar month, 1-12"`
}

// TransitionRecord is one candidature's entry into the stage during the
// window.
type TransitionRecord struct {
	CandidatureID   string `json:"candidature_id"`
	CandidateID     string `json:"candidate_id,omitempty"`
	JobID           string `json:"job_id,omitempty"`
	StageChangeDate string `json:"stage_change_date"`
}

// StageTransitionsOutput lists the transitions found for a stage and month.
type StageTransitionsOutput struct {
	StageName   string             `json:"stage_name"`
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	Total       int                `json:"total"`
	Transitions []TransitionRecord `json:"transitions"`
}

// StageCountOutput is the transition count for a stage and month.
type StageCountOutput struct {
	StageName string `json:"stage_name"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
	Count     int    `json:"count"`
}

// CurrentStageInput identifies a stage plus an optional result page.
type CurrentStageInput struct {
	StageName string `json:"stage_name" jsonschema:"exact pipeline stage name, case-sensitive"`
	Page      int    `json:"page,omitempty" jsonschema:"result page, starting at 1"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"results per page, max 100"`
}

// CurrentStageOutput is one page of candidatures currently in the stage.
type CurrentStageOutput struct {
	StageName    string                      `json:"stage_name"`
	Candidatures []models.CandidatureSummary `json:"candidatures"`
	Meta         models.SearchMeta           `json:"meta"`
}

// StageNameInput identifies a pipeline stage.
type StageNameInput struct {
	StageName string `json:"stage_name" jsonschema:"exact pipeline stage name, case-sensitive"`
}

// CurrentStageCountOutput is the live headcount of a stage.
type CurrentStageCountOutput struct {
	StageName string `json:"stage_name"`
	Count     int    `json:"count"`
}

// MonthCount pairs a calendar month with its transition count.
type MonthCount struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// CompareMonthsOutput contrasts a month's transition count with the month
// before it.
type CompareMonthsOutput struct {
	StageName string     `json:"stage_name"`
	Current   MonthCount `json:"current"`
	Previous  MonthCount `json:"previous"`
	Delta     int        `json:"delta"`
}

func registerStageTools(s *Server, eng StageEngine) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidatures_changed_to_stage",
		Description: "List the candidatures that entered a pipeline stage during a given calendar month (UTC).",
	}, s.transitionsHandler(eng))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "count_candidatures_changed_to_stage",
		Description: "Count the candidatures that entered a pipeline stage during a given calendar month (UTC).",
	}, s.transitionCountHandler(eng))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidatures_in_current_stage",
		Description: "List candidatures whose current stage matches the given name, one page at a time.",
	}, s.currentStageHandler(eng))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "count_candidatures_in_current_stage",
		Description: "Count candidatures whose current stage matches the given name.",
	}, s.currentStageCountHandler(eng))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "compare_stage_months",
		Description: "Compare how many candidatures entered a stage in a given month versus the month before.",
	}, s.compareMonthsHandler(eng))
}

func (s *Server) transitionsHandler(eng StageEngine) mcp.ToolHandlerFor[StageWindowInput, StageTransitionsOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StageWindowInput) (*mcp.CallToolResult, StageTransitionsOutput, error) {
		start := time.Now()
		transitions, err := eng.ListTransitionsInWindow(ctx, input.StageName, input.Year, input.Month)
		s.observe("get_candidatures_changed_to_stage", start, err)
		if err != nil {
			return nil, StageTransitionsOutput{}, err
		}

		records := make([]TransitionRecord, 0, len(transitions))
		for _, t := range transitions {
			records = append(records, TransitionRecord{
				CandidatureID:   t.CandidatureID,
				CandidateID:     t.CandidateID,
				JobID:           t.JobID,
				StageChangeDate: t.ChangedAt.UTC().Format(time.RFC3339),
			})
		}
		return nil, StageTransitionsOutput{
			StageName:   input.StageName,
			Year:        input.Year,
			Month:       input.Month,
			Total:       len(records),
			Transitions: records,
		}, nil
	}
}

func (s *Server) transitionCountHandler(eng StageEngine) mcp.ToolHandlerFor[StageWindowInput, StageCountOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StageWindowInput) (*mcp.CallToolResult, StageCountOutput, error) {
		start := time.Now()
		count, err := eng.CountTransitionsInWindow(ctx, input.StageName, input.Year, input.Month)
		s.observe("count_candidatures_changed_to_stage", start, err)
		if err != nil {
			return nil, StageCountOutput{}, err
		}
		return nil, StageCountOutput{
			StageName: input.StageName,
			Year:      input.Year,
			Month:     input.Month,
			Count:     count,
		}, nil
	}
}

func (s *Server) currentStageHandler(eng StageEngine) mcp.ToolHandlerFor[CurrentStageInput, CurrentStageOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CurrentStageInput) (*mcp.CallToolResult, CurrentStageOutput, error) {
		start := time.Now()
		page, err := eng.ListCurrentlyInStage(ctx, input.StageName, input.Page, input.PageSize)
		s.observe("get_candidatures_in_current_stage", start, err)
		if err != nil {
			return nil, CurrentStageOutput{}, err
		}
		return nil, CurrentStageOutput{
			StageName:    input.StageName,
			Candidatures: page.Data,
			Meta:         page.Meta,
		}, nil
	}
}

func (s *Server) currentStageCountHandler(eng StageEngine) mcp.ToolHandlerFor[StageNameInput, CurrentStageCountOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StageNameInput) (*mcp.CallToolResult, CurrentStageCountOutput, error) {
		start := time.Now()
		count, err := eng.CountCurrentlyInStage(ctx, input.StageName)
		s.observe("count_candidatures_in_current_stage", start, err)
		if err != nil {
			return nil, CurrentStageCountOutput{}, err
		}
		return nil, CurrentStageCountOutput{StageName: input.StageName, Count: count}, nil
	}
}

func (s *Server) compareMonthsHandler(eng StageEngine) mcp.ToolHandlerFor[StageWindowInput, CompareMonthsOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StageWindowInput) (*mcp.CallToolResult, CompareMonthsOutput, error) {
		start := time.Now()
		output, err := compareMonths(ctx, eng, input)
		s.observe("compare_stage_months", start, err)
		return nil, output, err
	}
}

func compareMonths(ctx context.Context, eng StageEngine, input StageWindowInput) (CompareMonthsOutput, error) {
	prevYear, prevMonth := input.Year, input.Month-1
	if prevMonth < 1 {
		prevYear, prevMonth = input.Year-1, 12
	}

	current, err := eng.CountTransitionsInWindow(ctx, input.StageName, input.Year, input.Month)
	if err != nil {
		return CompareMonthsOutput{}, err
	}
	previous, err := eng.CountTransitionsInWindow(ctx, input.StageName, prevYear, prevMonth)
	if err != nil {
		return CompareMonthsOutput{}, err
	}

	return CompareMonthsOutput{
		StageName: input.StageName,
		Current:   MonthCount{Year: input.Year, Month: input.Month, Count: current},
		Previous:  MonthCount{Year: prevYear, Month: prevMonth, Count: previous},
		Delta:     current - previous,
	}, nil
}
