package models

import (
	"encoding/json"
	"time"
)

// CandidatureStatus values as reported by the ATS.
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusDisqualified = "disqualified"
)

// CandidatureSummary is the abbreviated record returned by candidature search.
type CandidatureSummary struct {
	ID           string `json:"id"`
	CandidateID  string `json:"candidate_id"`
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	CurrentStage string `json:"current_stage_name"`
}

// Candidature is the detail record, optionally including the stage history
// when requested with the stages_history include.
type Candidature struct {
	ID            string              `json:"id"`
	CandidateID   string              `json:"candidate_id"`
	JobID         string              `json:"job_id"`
	Status        string              `json:"status"`
	StagesHistory []StageHistoryEntry `json:"stages_history"`

	// Raw preserves the full payload as returned by the ATS so callers can
	// surface fields this struct does not model.
	Raw json.RawMessage `json:"-"`
}

// StageHistoryEntry is one entry of a candidature's transition log. StartAt is
// kept as the wire string; the correlator parses it and skips entries it
// cannot parse.
type StageHistoryEntry struct {
	StageName string `json:"stage_name"`
	StartAt   string `json:"start_at"`
}

// StageTransition records that a candidature entered a stage within the
// queried month. At most one transition is reported per candidature per query.
type StageTransition struct {
	CandidatureID string          `json:"candidature_id"`
	CandidateID   string          `json:"candidate_id"`
	JobID         string          `json:"job_id"`
	StageName     string          `json:"stage_name"`
	ChangedAt     time.Time       `json:"stage_change_date"`
	Candidature   json.RawMessage `json:"candidature,omitempty"`
}

// Candidate is the candidate record with address and custom fields included.
type Candidate struct {
	ID           string        `json:"id"`
	FullName     string        `json:"full_name"`
	Email        string        `json:"email"`
	Phone        string        `json:"phone"`
	Address      Address       `json:"address"`
	CustomFields []CustomField `json:"custom_fields"`
}

// Address carries the location portion of a candidate record.
type Address struct {
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
}

// CustomField is one custom field value attached to a candidate.
type CustomField struct {
	ReferenceID string `json:"reference_id"`
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Value       any    `json:"value"`
}

// CustomFieldUpdate is the write shape for candidate custom fields.
type CustomFieldUpdate struct {
	Type       string `json:"type"`
	QuestionID string `json:"question_id"`
	Value      any    `json:"value"`
}

// FieldValue returns the value of the custom field with the given reference
// ID, or nil when the candidate does not carry it.
func (c Candidate) FieldValue(referenceID string) any {
	for _, field := range c.CustomFields {
		if field.ReferenceID == referenceID {
			return field.Value
		}
	}
	return nil
}

// DisqualifyResult summarises a bulk disqualification run for one candidate.
type DisqualifyResult struct {
	Email        string   `json:"email"`
	Found        int      `json:"candidatures_found"`
	Disqualified int      `json:"candidatures_disqualified"`
	Errors       []string `json:"errors"`
}
