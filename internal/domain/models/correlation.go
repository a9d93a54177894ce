package models

import "time"

// EdgeReason identifies why two events are connected in the evidence graph
type EdgeReason string

const (
	ReasonSharedIOC       EdgeReason = "shared_ioc"
	ReasonAnalysisCluster EdgeReason = "analysis_cluster"
	ReasonTemporalWindow  EdgeReason = "temporal_window"
)

// Campaign is a set of events judged related enough to represent one
// coordinated activity. Campaigns are materialized once per correlation run
// and never mutated afterwards.
type Campaign struct {
	CampaignID   string    `json:"campaign_id"`
	Name         string    `json:"name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	EventIDs     []string  `json:"event_ids"`
	IOCs         []string  `json:"iocs"`
	MitreTactics []string  `json:"mitre_tactics"`
	Confidence   float64   `json:"confidence"`
}

// CorrelationResult is the per-event correlation verdict. CampaignID is nil
// when the event's connected component was below the minimum campaign size.
type CorrelationResult struct {
	EventID         string   `json:"event_id"`
	CampaignID      *string  `json:"campaign_id"`
	SharedIOCs      []string `json:"shared_iocs"`
	TemporalCluster string   `json:"temporal_cluster"`
	MitreTactics    []string `json:"mitre_tactics"`
	Confidence      float64  `json:"confidence"`
}
