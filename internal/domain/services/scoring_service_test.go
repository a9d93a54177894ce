package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/pkg/logger"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: config.ScoringWeights{
			IncidentConf:    0.35,
			SectorConf:      0.15,
			CorrelationConf: 0.30,
			IOCCount:        0.10,
			MitreTactics:    0.10,
		},
		Thresholds: config.SeverityThresholds{
			Low:    0.3,
			Medium: 0.6,
			High:   0.8,
		},
	}
}

func newTestScoringEngine(cfg config.ScoringConfig) *ScoringEngine {
	return NewScoringEngine(cfg, logger.Nop())
}

func TestScore_UncorrelatedEventWithManyIndicators(t *testing.T) {
	analyses := []models.AnalysisResult{
		{EventID: "evt-f", IncidentConfidence: 0.9, SectorConfidence: 0.5},
	}
	iocCounts := map[string]int{"evt-f": 12}

	engine := newTestScoringEngine(testScoringConfig())
	results := engine.Score(analyses, nil, iocCounts)

	require.Len(t, results, 1)
	score := results[0]
	assert.Equal(t, "evt-f", score.EventID)
	// 0.35*0.9 + 0.15*0.5 + 0.10*1.0; the indicator term saturates at 10.
	assert.InDelta(t, 0.49, score.Severity, 1e-9)
	assert.Equal(t, models.SeverityLow, score.SeverityLabel)
	// Strongest single signal, not an average.
	assert.InDelta(t, 0.9, score.Confidence, 1e-9)

	assert.InDelta(t, 1.0, score.Rationale["ioc_score"], 1e-9)
	assert.InDelta(t, 0.0, score.Rationale["correlation_conf"], 1e-9)
	assert.InDelta(t, 0.0, score.Rationale["mitre_score"], 1e-9)
	assert.InDelta(t, 0.9, score.Rationale["incident_conf"], 1e-9)
	assert.InDelta(t, 0.5, score.Rationale["sector_conf"], 1e-9)
}

func TestScore_CorrelationRaisesSeverityAndConfidence(t *testing.T) {
	campaignID := "CAMP-0001"
	analyses := []models.AnalysisResult{
		{EventID: "evt-a", IncidentConfidence: 0.4, SectorConfidence: 0.2},
	}
	correlations := []models.CorrelationResult{
		{
			EventID:      "evt-a",
			CampaignID:   &campaignID,
			MitreTactics: []string{"Initial Access", "Execution", "Command and Control"},
			Confidence:   0.8,
		},
	}

	engine := newTestScoringEngine(testScoringConfig())
	results := engine.Score(analyses, correlations, nil)

	require.Len(t, results, 1)
	score := results[0]
	// 0.35*0.4 + 0.15*0.2 + 0.30*0.8 + 0.10*(3/5)
	assert.InDelta(t, 0.47, score.Severity, 1e-9)
	assert.InDelta(t, 0.8, score.Confidence, 1e-9)
	assert.InDelta(t, 0.6, score.Rationale["mitre_score"], 1e-9)
}

func TestScore_LabelBoundaryResolvesHigher(t *testing.T) {
	cfg := testScoringConfig()
	cfg.Weights = config.ScoringWeights{IncidentConf: 0.8}

	analyses := []models.AnalysisResult{
		{EventID: "evt-a", IncidentConfidence: 1.0},
	}

	engine := newTestScoringEngine(cfg)
	results := engine.Score(analyses, nil, nil)

	require.Len(t, results, 1)
	// Exactly the high threshold resolves to the higher label.
	assert.Equal(t, 0.8, results[0].Severity)
	assert.Equal(t, models.SeverityHigh, results[0].SeverityLabel)
}

func TestScore_SeverityLabels(t *testing.T) {
	engine := newTestScoringEngine(testScoringConfig())

	tests := []struct {
		severity float64
		expected models.SeverityLabel
	}{
		{0.0, models.SeverityInformational},
		{0.29, models.SeverityInformational},
		{0.3, models.SeverityLow},
		{0.59, models.SeverityLow},
		{0.6, models.SeverityMedium},
		{0.79, models.SeverityMedium},
		{0.8, models.SeverityHigh},
		{1.0, models.SeverityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, engine.severityLabel(tt.severity), "severity %v", tt.severity)
	}
}

func TestScore_EventsWithoutAnalysisAreExcluded(t *testing.T) {
	analyses := []models.AnalysisResult{
		{EventID: "evt-b", IncidentConfidence: 0.5},
	}
	correlations := []models.CorrelationResult{
		{EventID: "evt-a", Confidence: 0.9},
		{EventID: "evt-b", Confidence: 0.1},
	}

	engine := newTestScoringEngine(testScoringConfig())
	results := engine.Score(analyses, correlations, nil)

	require.Len(t, results, 1)
	assert.Equal(t, "evt-b", results[0].EventID)
}

func TestScore_ResultsSortedByEventID(t *testing.T) {
	analyses := []models.AnalysisResult{
		{EventID: "evt-c"},
		{EventID: "evt-a"},
		{EventID: "evt-b"},
	}

	engine := newTestScoringEngine(testScoringConfig())
	results := engine.Score(analyses, nil, nil)

	require.Len(t, results, 3)
	assert.Equal(t, "evt-a", results[0].EventID)
	assert.Equal(t, "evt-b", results[1].EventID)
	assert.Equal(t, "evt-c", results[2].EventID)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, clamp(-0.2, 0, 1))
	assert.Equal(t, 1.0, clamp(1.7, 0, 1))
	assert.Equal(t, 0.5, clamp(0.5, 0, 1))
}
