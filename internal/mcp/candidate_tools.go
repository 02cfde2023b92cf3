package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/talentops/stagetrack/internal/models"
)

const defaultDisqualifyReason = "Baja Servicio"

// SearchCandidateInput is a free-text candidate lookup.
type SearchCandidateInput struct {
	SearchTerm string `json:"search_term" jsonschema:"name, email, or phone number"`
}

// CandidateOutput is the resolved candidate.
type CandidateOutput struct {
	Candidate models.Candidate `json:"candidate"`
}

// GetCandidateInput identifies a candidate by ID.
type GetCandidateInput struct {
	CandidateID string `json:"candidate_id"`
}

// ProfileInput identifies a candidate by email.
type ProfileInput struct {
	Email string `json:"email"`
}

// ProfileOutput is the projected candidate profile.
type ProfileOutput struct {
	Profile            models.CandidateProfile `json:"profile"`
	EligibleForReports bool                    `json:"eligible_for_reports"`
}

// UpdateDiscordInput sets a candidate's Discord handle.
type UpdateDiscordInput struct {
	CandidateID string `json:"candidate_id"`
	DiscordID   string `json:"discord_id"`
}

// UpdateSubscriptionInput sets a candidate's subscriber flag. The flag
// defaults to true when omitted.
type UpdateSubscriptionInput struct {
	CandidateID  string `json:"candidate_id"`
	IsSubscriber *bool  `json:"is_subscriber,omitempty" jsonschema:"defaults to true"`
}

// UpdateStageInput records a stage on the candidate identified by email.
type UpdateStageInput struct {
	Email     string `json:"email"`
	StageName string `json:"stage_name"`
}

// UpdateOutput reports a completed write.
type UpdateOutput struct {
	Updated bool   `json:"updated"`
	Message string `json:"message,omitempty"`
}

// ActiveCandidaturesInput identifies a candidate by email.
type ActiveCandidaturesInput struct {
	Email string `json:"email"`
}

// ActiveCandidaturesOutput lists the candidate's active candidatures.
type ActiveCandidaturesOutput struct {
	Email        string                      `json:"email"`
	Total        int                         `json:"total"`
	Candidatures []models.CandidatureSummary `json:"candidatures"`
}

// DisqualifyInput disqualifies a single candidature.
type DisqualifyInput struct {
	CandidatureID string `json:"candidature_id"`
	Reason        string `json:"reason,omitempty" jsonschema:"defaults to Baja Servicio"`
}

// DisqualifyAllInput disqualifies every active candidature of a candidate.
type DisqualifyAllInput struct {
	Email  string `json:"email"`
	Reason string `json:"reason,omitempty" jsonschema:"defaults to Baja Servicio"`
}

// DisqualifyAllOutput reports the per-candidature outcomes.
type DisqualifyAllOutput struct {
	Result models.DisqualifyResult `json:"result"`
}

// StageHistoryInput identifies a candidature by ID.
type StageHistoryInput struct {
	CandidatureID string `json:"candidature_id"`
}

// StageHistoryOutput is the candidature's stage history in ATS order.
type StageHistoryOutput struct {
	CandidatureID string                     `json:"candidature_id"`
	Stages        []models.StageHistoryEntry `json:"stages"`
}

// SearchSubscribersInput filters candidates by subscriber flag and activity
// status.
type SearchSubscribersInput struct {
	IsSubscriber   *bool  `json:"is_subscriber,omitempty" jsonschema:"defaults to true"`
	ActivityStatus string `json:"activity_status,omitempty" jsonschema:"activity flag value, e.g. Activo or Inactivo"`
	Page           int    `json:"page,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
}

// SearchSubscribersOutput is one page of matching candidates.
type SearchSubscribersOutput struct {
	Candidates []models.Candidate `json:"candidates"`
	Meta       models.SearchMeta  `json:"meta"`
}

// LocationSearchInput filters candidates by zone, province, or address
// fields, optionally narrowed by subscription and activity status.
type LocationSearchInput struct {
	Zone           string `json:"zona,omitempty" jsonschema:"zone/area custom field value"`
	Province       string `json:"provincia,omitempty" jsonschema:"province custom field value"`
	City           string `json:"city,omitempty" jsonschema:"city from the candidate address"`
	State          string `json:"state,omitempty" jsonschema:"state/region from the candidate address"`
	PostalCode     string `json:"postal_code,omitempty" jsonschema:"postal code from the candidate address"`
	IsSubscriber   *bool  `json:"is_subscriber,omitempty" jsonschema:"also filter by subscription status"`
	ActivityStatus string `json:"activity_status,omitempty" jsonschema:"also filter by activity status, Activo or Inactivo"`
	Page           int    `json:"page,omitempty"`
	PageSize       int    `json:"page_size,omitempty"`
}

func (in LocationSearchInput) filter() models.LocationFilter {
	return models.LocationFilter{
		Zone:           in.Zone,
		Province:       in.Province,
		City:           in.City,
		State:          in.State,
		PostalCode:     in.PostalCode,
		Subscriber:     in.IsSubscriber,
		ActivityStatus: in.ActivityStatus,
	}
}

// CandidateCountOutput is the number of candidates matching a filter.
type CandidateCountOutput struct {
	Total int `json:"total_candidates"`
}

func registerCandidateTools(s *Server, client DirectoryClient) {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_candidate",
		Description: "Find a candidate by name, email, or phone number.",
	}, s.searchCandidateHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidate_details",
		Description: "Fetch full candidate details including address and custom fields.",
	}, s.getCandidateHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidate_profile",
		Description: "Fetch a candidate's reporting profile (subscription, guarantee, activity) by email.",
	}, s.profileHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_candidate_discord_id",
		Description: "Set the Discord handle custom field on a candidate.",
	}, s.updateDiscordHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_candidate_subscription",
		Description: "Set the subscriber flag custom field on a candidate.",
	}, s.updateSubscriptionHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "update_candidate_stage",
		Description: "Record a stage name and today's date on the candidate identified by email.",
	}, s.updateStageHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "find_active_candidatures",
		Description: "List a candidate's active candidatures by email.",
	}, s.activeCandidaturesHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "disqualify_candidature",
		Description: "Disqualify a single candidature with a reason.",
	}, s.disqualifyHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "disqualify_all_candidatures",
		Description: "Disqualify every active candidature of the candidate identified by email.",
	}, s.disqualifyAllHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidature_stage_history",
		Description: "Fetch one candidature's stage history in the order the ATS stores it.",
	}, s.stageHistoryHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_subscribers",
		Description: "Search candidates by subscriber flag and optional activity status.",
	}, s.searchSubscribersHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "search_candidates_by_location",
		Description: "Search candidates by zone, province, or address fields, optionally narrowed by subscription and activity status.",
	}, s.locationSearchHandler(client))

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_candidate_count",
		Description: "Count candidates matching location, subscription, and activity criteria without returning the full result set.",
	}, s.candidateCountHandler(client))
}

func (s *Server) searchCandidateHandler(client DirectoryClient) mcp.ToolHandlerFor[SearchCandidateInput, CandidateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchCandidateInput) (*mcp.CallToolResult, CandidateOutput, error) {
		start := time.Now()
		candidate, err := client.SearchCandidate(ctx, input.SearchTerm)
		s.observe("search_candidate", start, err)
		if err != nil {
			return nil, CandidateOutput{}, err
		}
		return nil, CandidateOutput{Candidate: candidate}, nil
	}
}

func (s *Server) getCandidateHandler(client DirectoryClient) mcp.ToolHandlerFor[GetCandidateInput, CandidateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetCandidateInput) (*mcp.CallToolResult, CandidateOutput, error) {
		start := time.Now()
		candidate, err := client.GetCandidate(ctx, input.CandidateID)
		s.observe("get_candidate_details", start, err)
		if err != nil {
			return nil, CandidateOutput{}, err
		}
		return nil, CandidateOutput{Candidate: candidate}, nil
	}
}

func (s *Server) profileHandler(client DirectoryClient) mcp.ToolHandlerFor[ProfileInput, ProfileOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProfileInput) (*mcp.CallToolResult, ProfileOutput, error) {
		start := time.Now()
		profile, err := client.CandidateProfileByEmail(ctx, input.Email)
		s.observe("get_candidate_profile", start, err)
		if err != nil {
			return nil, ProfileOutput{}, err
		}
		return nil, ProfileOutput{
			Profile:            profile,
			EligibleForReports: profile.EligibleForReports(),
		}, nil
	}
}

func (s *Server) updateDiscordHandler(client DirectoryClient) mcp.ToolHandlerFor[UpdateDiscordInput, UpdateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDiscordInput) (*mcp.CallToolResult, UpdateOutput, error) {
		start := time.Now()
		err := client.SetCandidateDiscordID(ctx, input.CandidateID, input.DiscordID)
		s.observe("update_candidate_discord_id", start, err)
		if err != nil {
			return nil, UpdateOutput{}, err
		}
		return nil, UpdateOutput{Updated: true, Message: "discord id updated"}, nil
	}
}

func (s *Server) updateSubscriptionHandler(client DirectoryClient) mcp.ToolHandlerFor[UpdateSubscriptionInput, UpdateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateSubscriptionInput) (*mcp.CallToolResult, UpdateOutput, error) {
		subscriber := true
		if input.IsSubscriber != nil {
			subscriber = *input.IsSubscriber
		}
		start := time.Now()
		err := client.SetCandidateSubscription(ctx, input.CandidateID, subscriber)
		s.observe("update_candidate_subscription", start, err)
		if err != nil {
			return nil, UpdateOutput{}, err
		}
		return nil, UpdateOutput{Updated: true, Message: "subscription updated"}, nil
	}
}

func (s *Server) updateStageHandler(client DirectoryClient) mcp.ToolHandlerFor[UpdateStageInput, UpdateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input UpdateStageInput) (*mcp.CallToolResult, UpdateOutput, error) {
		start := time.Now()
		err := client.SetCandidateStage(ctx, input.Email, input.StageName)
		s.observe("update_candidate_stage", start, err)
		if err != nil {
			return nil, UpdateOutput{}, err
		}
		return nil, UpdateOutput{Updated: true, Message: "stage recorded"}, nil
	}
}

func (s *Server) activeCandidaturesHandler(client DirectoryClient) mcp.ToolHandlerFor[ActiveCandidaturesInput, ActiveCandidaturesOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ActiveCandidaturesInput) (*mcp.CallToolResult, ActiveCandidaturesOutput, error) {
		start := time.Now()
		candidatures, err := client.FindActiveCandidaturesByEmail(ctx, input.Email)
		s.observe("find_active_candidatures", start, err)
		if err != nil {
			return nil, ActiveCandidaturesOutput{}, err
		}
		return nil, ActiveCandidaturesOutput{
			Email:        input.Email,
			Total:        len(candidatures),
			Candidatures: candidatures,
		}, nil
	}
}

func (s *Server) disqualifyHandler(client DirectoryClient) mcp.ToolHandlerFor[DisqualifyInput, UpdateOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DisqualifyInput) (*mcp.CallToolResult, UpdateOutput, error) {
		reason := input.Reason
		if reason == "" {
			reason = defaultDisqualifyReason
		}
		start := time.Now()
		err := client.DisqualifyCandidature(ctx, input.CandidatureID, reason)
		s.observe("disqualify_candidature", start, err)
		if err != nil {
			return nil, UpdateOutput{}, err
		}
		return nil, UpdateOutput{Updated: true, Message: "candidature disqualified"}, nil
	}
}

func (s *Server) disqualifyAllHandler(client DirectoryClient) mcp.ToolHandlerFor[DisqualifyAllInput, DisqualifyAllOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DisqualifyAllInput) (*mcp.CallToolResult, DisqualifyAllOutput, error) {
		reason := input.Reason
		if reason == "" {
			reason = defaultDisqualifyReason
		}
		start := time.Now()
		result, err := client.DisqualifyActiveByEmail(ctx, input.Email, reason)
		s.observe("disqualify_all_candidatures", start, err)
		if err != nil {
			return nil, DisqualifyAllOutput{}, err
		}
		return nil, DisqualifyAllOutput{Result: result}, nil
	}
}

func (s *Server) stageHistoryHandler(client DirectoryClient) mcp.ToolHandlerFor[StageHistoryInput, StageHistoryOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input StageHistoryInput) (*mcp.CallToolResult, StageHistoryOutput, error) {
		start := time.Now()
		candidature, err := client.FetchCandidature(ctx, input.CandidatureID)
		s.observe("get_candidature_stage_history", start, err)
		if err != nil {
			return nil, StageHistoryOutput{}, err
		}
		return nil, StageHistoryOutput{
			CandidatureID: candidature.ID,
			Stages:        candidature.StagesHistory,
		}, nil
	}
}

func (s *Server) locationSearchHandler(client DirectoryClient) mcp.ToolHandlerFor[LocationSearchInput, SearchSubscribersOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LocationSearchInput) (*mcp.CallToolResult, SearchSubscribersOutput, error) {
		start := time.Now()
		page, err := client.SearchCandidatesByLocation(ctx, input.filter(), input.Page, input.PageSize)
		s.observe("search_candidates_by_location", start, err)
		if err != nil {
			return nil, SearchSubscribersOutput{}, err
		}
		return nil, SearchSubscribersOutput{Candidates: page.Data, Meta: page.Meta}, nil
	}
}

func (s *Server) candidateCountHandler(client DirectoryClient) mcp.ToolHandlerFor[LocationSearchInput, CandidateCountOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LocationSearchInput) (*mcp.CallToolResult, CandidateCountOutput, error) {
		start := time.Now()
		total, err := client.CandidateCount(ctx, input.filter())
		s.observe("get_candidate_count", start, err)
		if err != nil {
			return nil, CandidateCountOutput{}, err
		}
		return nil, CandidateCountOutput{Total: total}, nil
	}
}

func (s *Server) searchSubscribersHandler(client DirectoryClient) mcp.ToolHandlerFor[SearchSubscribersInput, SearchSubscribersOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchSubscribersInput) (*mcp.CallToolResult, SearchSubscribersOutput, error) {
		subscriber := true
		if input.IsSubscriber != nil {
			subscriber = *input.IsSubscriber
		}
		start := time.Now()
		page, err := client.SearchSubscribers(ctx, subscriber, input.ActivityStatus, input.Page, input.PageSize)
		s.observe("search_subscribers", start, err)
		if err != nil {
			return nil, SearchSubscribersOutput{}, err
		}
		return nil, SearchSubscribersOutput{Candidates: page.Data, Meta: page.Meta}, nil
	}
}
