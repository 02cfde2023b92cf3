package models

// CandidateProfile is a candidate enriched with the custom-field values used
// for report filtering.
type CandidateProfile struct {
	ID         string `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	City       string `json:"city"`
	Subscriber any    `json:"suscriptor"`
	Guarantee  any    `json:"garantia_100_dias"`
	ActiveFlag any    `json:"activo_inactivo"`

	CustomFields []CustomField `json:"raw_custom_fields"`
}

// EligibleForReports reports whether the candidate should appear in reports.
// Only candidates explicitly marked inactive are excluded.
func (p CandidateProfile) EligibleForReports() bool {
	return p.ActiveFlag != "Inactivo"
}
