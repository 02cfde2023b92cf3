package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/talentops/stagetrack/internal/models"
)

// SearchCandidate finds a candidate by name, email, or phone number and
// returns the first match. ErrNotFound is returned when nothing matches.
func (c *Client) SearchCandidate(ctx context.Context, term string) (models.Candidate, error) {
	payload := struct {
		Search string `json:"search"`
	}{Search: term}

	var response struct {
		Data []models.Candidate `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "candidates/search", nil, payload, &response); err != nil {
		return models.Candidate{}, fmt.Errorf("search candidate: %w", err)
	}
	if len(response.Data) == 0 {
		return models.Candidate{}, fmt.Errorf("candidate %q: %w", term, ErrNotFound)
	}
	return response.Data[0], nil
}

// CandidateIDByEmail resolves a candidate's ID from their email address.
func (c *Client) CandidateIDByEmail(ctx context.Context, email string) (string, error) {
	candidate, err := c.SearchCandidate(ctx, email)
	if err != nil {
		return "", err
	}
	return candidate.ID, nil
}

// GetCandidate retrieves full candidate details including address and custom
// fields.
func (c *Client) GetCandidate(ctx context.Context, candidateID string) (models.Candidate, error) {
	query := url.Values{}
	query.Add("includes[]", "address")
	query.Add("includes[]", "custom_fields")

	var response struct {
		Data models.Candidate `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "candidates/"+candidateID, query, nil, &response); err != nil {
		return models.Candidate{}, fmt.Errorf("get candidate %s: %w", candidateID, err)
	}
	return response.Data, nil
}

// CandidateProfileByEmail resolves a candidate by email and projects the
// custom-field values used for report filtering.
func (c *Client) CandidateProfileByEmail(ctx context.Context, email string) (models.CandidateProfile, error) {
	candidateID, err := c.CandidateIDByEmail(ctx, email)
	if err != nil {
		return models.CandidateProfile{}, err
	}
	candidate, err := c.GetCandidate(ctx, candidateID)
	if err != nil {
		return models.CandidateProfile{}, err
	}

	profile := models.CandidateProfile{
		ID:           candidate.ID,
		FullName:     candidate.FullName,
		Email:        candidate.Email,
		Phone:        candidate.Phone,
		City:         candidate.Address.City,
		Subscriber:   candidate.FieldValue(c.fields.Subscriber),
		Guarantee:    candidate.FieldValue(c.fields.Guarantee),
		ActiveFlag:   candidate.FieldValue(c.fields.ActiveFlag),
		CustomFields: candidate.CustomFields,
	}
	if profile.Email == "" {
		profile.Email = email
	}
	return profile, nil
}

// UpdateCandidateCustomFields merges the given updates into the candidate's
// existing custom fields and writes the full set back. The ATS replaces the
// whole custom-field list on PATCH, so untouched fields must be re-sent.
func (c *Client) UpdateCandidateCustomFields(ctx context.Context, candidateID string, updates []models.CustomFieldUpdate) error {
	candidate, err := c.GetCandidate(ctx, candidateID)
	if err != nil {
		return err
	}

	merged := make(map[string]models.CustomFieldUpdate, len(candidate.CustomFields)+len(updates))
	order := make([]string, 0, len(candidate.CustomFields)+len(updates))
	for _, field := range candidate.CustomFields {
		if field.ReferenceID == "" {
			continue
		}
		merged[field.ReferenceID] = models.CustomFieldUpdate{
			Type:       field.Type,
			QuestionID: field.ReferenceID,
			Value:      field.Value,
		}
		order = append(order, field.ReferenceID)
	}
	for _, update := range updates {
		if update.QuestionID == "" {
			continue
		}
		if _, exists := merged[update.QuestionID]; !exists {
			order = append(order, update.QuestionID)
		}
		merged[update.QuestionID] = update
	}

	fields := make([]models.CustomFieldUpdate, 0, len(order))
	for _, id := range order {
		fields = append(fields, merged[id])
	}

	payload := map[string]any{"custom_fields": fields}
	if err := c.doJSON(ctx, http.MethodPatch, "candidates/"+candidateID, nil, payload, nil); err != nil {
		return fmt.Errorf("update candidate %s custom fields: %w", candidateID, err)
	}
	return nil
}

// SetCandidateDiscordID updates the candidate's Discord handle field.
func (c *Client) SetCandidateDiscordID(ctx context.Context, candidateID, discordID string) error {
	return c.UpdateCandidateCustomFields(ctx, candidateID, []models.CustomFieldUpdate{
		{Type: "text", QuestionID: c.fields.DiscordID, Value: discordID},
	})
}

// SetCandidateSubscription updates the candidate's subscriber flag.
func (c *Client) SetCandidateSubscription(ctx context.Context, candidateID string, subscriber bool) error {
	return c.UpdateCandidateCustomFields(ctx, candidateID, []models.CustomFieldUpdate{
		{Type: "boolean", QuestionID: c.fields.Subscriber, Value: subscriber},
	})
}

// SetCandidateStage records the stage name and today's date on the candidate
// identified by email.
func (c *Client) SetCandidateStage(ctx context.Context, email, stageName string) error {
	candidateID, err := c.CandidateIDByEmail(ctx, email)
	if err != nil {
		return err
	}
	today := time.Now().UTC().Format("2006-01-02")
	return c.UpdateCandidateCustomFields(ctx, candidateID, []models.CustomFieldUpdate{
		{Type: "text", QuestionID: c.fields.StageName, Value: stageName},
		{Type: "date", QuestionID: c.fields.StageDate, Value: today},
	})
}

// SearchCandidatesWithFilters runs one page of the filtered candidate search.
func (c *Client) SearchCandidatesWithFilters(ctx context.Context, conditions []models.FilterCondition, page, pageSize int) (models.CandidateSearchPage, error) {
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page < 1 {
		page = 1
	}

	payload := models.SearchRequest{
		Filters:  models.AndGroup(conditions),
		Page:     page,
		PageSize: pageSize,
	}

	var result models.CandidateSearchPage
	if err := c.doJSON(ctx, http.MethodPost, "candidates/search", nil, payload, &result); err != nil {
		return models.CandidateSearchPage{}, fmt.Errorf("search candidates: %w", err)
	}
	return result, nil
}

func (c *Client) locationConditions(filter models.LocationFilter) []models.FilterCondition {
	var conditions []models.FilterCondition
	if filter.Zone != "" {
		conditions = append(conditions, models.CustomFieldEquals(c.fields.Zone, filter.Zone))
	}
	if filter.Province != "" {
		conditions = append(conditions, models.CustomFieldEquals(c.fields.Province, filter.Province))
	}
	if filter.City != "" {
		conditions = append(conditions, models.CustomFieldEquals("address__city", filter.City))
	}
	if filter.State != "" {
		conditions = append(conditions, models.CustomFieldEquals("address__state", filter.State))
	}
	if filter.PostalCode != "" {
		conditions = append(conditions, models.CustomFieldEquals("address__postal_code", filter.PostalCode))
	}
	if filter.Subscriber != nil {
		conditions = append(conditions, models.CustomFieldEquals(c.fields.Subscriber, *filter.Subscriber))
	}
	if filter.ActivityStatus != "" {
		conditions = append(conditions, models.CustomFieldEquals(c.fields.ActiveFlag, filter.ActivityStatus))
	}
	return conditions
}

// SearchCandidatesByLocation runs one page of the candidate search against
// the given location criteria.
func (c *Client) SearchCandidatesByLocation(ctx context.Context, filter models.LocationFilter, page, pageSize int) (models.CandidateSearchPage, error) {
	return c.SearchCandidatesWithFilters(ctx, c.locationConditions(filter), page, pageSize)
}

// CandidateCount returns the number of candidates matching the filter using
// only the search metadata from a page_size=1 request.
func (c *Client) CandidateCount(ctx context.Context, filter models.LocationFilter) (int, error) {
	result, err := c.SearchCandidatesWithFilters(ctx, c.locationConditions(filter), 1, 1)
	if err != nil {
		return 0, err
	}
	return result.Meta.Total, nil
}

// SearchSubscribers runs one page of the candidate search filtered by the
// subscriber flag and, optionally, the activity status.
func (c *Client) SearchSubscribers(ctx context.Context, subscriber bool, activityStatus string, page, pageSize int) (models.CandidateSearchPage, error) {
	conditions := []models.FilterCondition{
		models.CustomFieldEquals(c.fields.Subscriber, subscriber),
	}
	if activityStatus != "" {
		conditions = append(conditions, models.CustomFieldEquals(c.fields.ActiveFlag, activityStatus))
	}
	return c.SearchCandidatesWithFilters(ctx, conditions, page, pageSize)
}

// CustomFieldDefinitions fetches the candidate custom-field schema. The
// definitions change rarely, so the raw payload is cached.
func (c *Client) CustomFieldDefinitions(ctx context.Context) (json.RawMessage, error) {
	const cacheKey = "stagetrack:fielddefs"
	if data, err := c.cache.Get(ctx, cacheKey); err == nil {
		return data, nil
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "custom-fields/candidate", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch custom field definitions: %w", err)
	}
	_ = c.cache.Set(ctx, cacheKey, raw, c.fieldDefsTTL)
	return raw, nil
}
