package models

import "time"

// Event is one normalized piece of ingested threat reporting. Events are
// produced by the preprocessing collaborator and are immutable here.
type Event struct {
	EventID   string    `json:"event_id"`
	Source    string    `json:"source,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
	CleanText string    `json:"clean_text"`
}

// IOC is an atomic observable extracted from an event, with a normalized
// canonical form. One normalized value shared by several events is the
// primary correlation signal.
type IOC struct {
	Type            string  `json:"ioc_type"`
	Value           string  `json:"value"`
	NormalizedValue string  `json:"normalized_value"`
	Confidence      float64 `json:"confidence"`
	SourceEventID   string  `json:"source_event_id"`
	Context         string  `json:"context,omitempty"`
}

// AnalysisResult carries classifier and clustering output for one event.
// ClusterID is nil when the analysis stage left the event unclustered.
type AnalysisResult struct {
	EventID            string              `json:"event_id"`
	IncidentType       string              `json:"incident_type"`
	IncidentConfidence float64             `json:"incident_confidence"`
	Sector             string              `json:"sector"`
	SectorConfidence   float64             `json:"sector_confidence"`
	ClusterID          *int                `json:"cluster_id"`
	ClusterConfidence  float64             `json:"cluster_confidence"`
	Explanations       map[string][]string `json:"explanations,omitempty"`
}
