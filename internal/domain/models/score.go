package models

// SeverityLabel is the discrete label derived from the severity score
type SeverityLabel string

const (
	SeverityInformational SeverityLabel = "informational"
	SeverityLow           SeverityLabel = "low"
	SeverityMedium        SeverityLabel = "medium"
	SeverityHigh          SeverityLabel = "high"
)

// ScoreResult is the per-event severity verdict. Rationale records every
// named component score that produced the severity; it is a first-class
// output for auditability, not debug data.
type ScoreResult struct {
	EventID       string             `json:"event_id"`
	Severity      float64            `json:"severity"`
	SeverityLabel SeverityLabel      `json:"severity_label"`
	Confidence    float64            `json:"confidence"`
	Rationale     map[string]float64 `json:"rationale"`
}
