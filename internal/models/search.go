package models

// FilterCondition is a single predicate in an ATS search expression.
type FilterCondition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// FilterGroup combines conditions under one boolean operator.
type FilterGroup struct {
	Operator string            `json:"operator"`
	Filters  []FilterCondition `json:"filters"`
}

// SearchFilters is the grouped filter expression the ATS search endpoints
// accept.
type SearchFilters struct {
	Groups []FilterGroup `json:"groups"`
}

// SearchRequest is the POST body for the paginated search endpoints. Search
// is a pointer so an absent free-text term serialises as JSON null, which is
// what the ATS expects.
type SearchRequest struct {
	Filters  *SearchFilters `json:"filters,omitempty"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Search   *string        `json:"search"`
}

// SearchMeta is the pagination metadata attached to search responses.
type SearchMeta struct {
	Total      int  `json:"total"`
	Page       int  `json:"page"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

// SearchPage is one page of candidature search results.
type SearchPage struct {
	Data []CandidatureSummary `json:"data"`
	Meta SearchMeta           `json:"meta"`
}

// CandidateSearchPage is one page of candidate search results.
type CandidateSearchPage struct {
	Data []Candidate `json:"data"`
	Meta SearchMeta  `json:"meta"`
}

// LocationFilter selects candidates by geography, optionally narrowed by
// subscription and activity status. Zone and Province are custom fields;
// City, State, and PostalCode match the candidate's address directly.
type LocationFilter struct {
	Zone           string
	Province       string
	City           string
	State          string
	PostalCode     string
	Subscriber     *bool
	ActivityStatus string
}

// StageEquals builds the equality predicate on a candidature's current stage
// name used by the stage tracking queries.
func StageEquals(stageName string) []FilterCondition {
	return []FilterCondition{{
		Field:    "current_stage__name",
		Operator: "equals",
		Value:    stageName,
	}}
}

// CustomFieldEquals builds an equality predicate on a candidate custom field.
// Boolean values are translated to the "Sí"/"No" strings the ATS stores, and
// address fields keep their native names without the custom field prefix.
func CustomFieldEquals(fieldID string, value any) FilterCondition {
	if b, ok := value.(bool); ok {
		if b {
			value = "Sí"
		} else {
			value = "No"
		}
	}
	field := "custom_fields__" + fieldID
	if len(fieldID) > 9 && fieldID[:9] == "address__" {
		field = fieldID
	}
	return FilterCondition{Field: field, Operator: "equals", Value: value}
}

// AndGroup wraps conditions into the single-group expression used by every
// query this service issues.
func AndGroup(conditions []FilterCondition) *SearchFilters {
	if len(conditions) == 0 {
		return nil
	}
	return &SearchFilters{Groups: []FilterGroup{{Operator: "and", Filters: conditions}}}
}
