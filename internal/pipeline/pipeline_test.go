package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/internal/jsonl"
	"ctiforge/pkg/logger"
)

func testPipelineConfig(t *testing.T, stages []string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	return &config.Config{
		Pipeline: config.PipelineConfig{
			Stages:   stages,
			FailFast: true,
			Paths: config.PipelinePaths{
				Events:       filepath.Join(dir, "normalized_events.jsonl"),
				IOCs:         filepath.Join(dir, "iocs.jsonl"),
				Analyses:     filepath.Join(dir, "analysis_results.jsonl"),
				Correlations: filepath.Join(dir, "correlation_results.jsonl"),
				Campaigns:    filepath.Join(dir, "campaigns.jsonl"),
				Scores:       filepath.Join(dir, "scores.jsonl"),
			},
		},
		Correlation: config.CorrelationConfig{
			TemporalWindowHours: 24,
			MinSharedIOCs:       1,
			MinCampaignSize:     2,
			UseAnalysisClusters: true,
			UseTemporalWindow:   true,
			MaxGroupSize:        1000,
			Weights: config.CorrelationWeights{
				SharedIOC:       0.4,
				AnalysisCluster: 0.2,
				Temporal:        0.2,
				IncidentConf:    0.1,
				SectorConf:      0.1,
			},
		},
		Scoring: config.ScoringConfig{
			Weights: config.ScoringWeights{
				IncidentConf:    0.35,
				SectorConf:      0.15,
				CorrelationConf: 0.30,
				IOCCount:        0.10,
				MitreTactics:    0.10,
			},
			Thresholds: config.SeverityThresholds{Low: 0.3, Medium: 0.6, High: 0.8},
		},
	}
}

func writeTestEvidence(t *testing.T, paths config.PipelinePaths) {
	t.Helper()
	day := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	_, err := jsonl.WriteFile(paths.Events, []models.Event{
		{EventID: "evt-a", FetchedAt: day, CleanText: "phishing wave against banks"},
		{EventID: "evt-b", FetchedAt: day.Add(time.Hour), CleanText: "same campaign, ransomware stage"},
		{EventID: "evt-c", FetchedAt: day.Add(45 * 24 * time.Hour), CleanText: "unrelated advisory"},
	})
	require.NoError(t, err)

	_, err = jsonl.WriteFile(paths.IOCs, []models.IOC{
		{Type: "domain", Value: "evil.example.com", NormalizedValue: "evil.example.com", SourceEventID: "evt-a"},
		{Type: "domain", Value: "evil.example.com", NormalizedValue: "evil.example.com", SourceEventID: "evt-b"},
	})
	require.NoError(t, err)

	_, err = jsonl.WriteFile(paths.Analyses, []models.AnalysisResult{
		{EventID: "evt-a", IncidentType: "phishing", IncidentConfidence: 0.8, SectorConfidence: 0.6},
		{EventID: "evt-b", IncidentType: "ransomware", IncidentConfidence: 0.9, SectorConfidence: 0.7},
		{EventID: "evt-c", IncidentType: "other", IncidentConfidence: 0.3, SectorConfidence: 0.1},
	})
	require.NoError(t, err)
}

func TestRunner_CorrelationAndScoring(t *testing.T) {
	cfg := testPipelineConfig(t, []string{StageCorrelation, StageScoring})
	writeTestEvidence(t, cfg.Pipeline.Paths)

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Empty(t, summary.FailedStages)
	assert.Equal(t, 3, summary.Events)
	assert.Equal(t, 3, summary.Correlations)
	assert.Equal(t, 1, summary.Campaigns)
	assert.Equal(t, 3, summary.Scores)

	campaigns, err := jsonl.ReadCampaignsFile(cfg.Pipeline.Paths.Campaigns)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, "CAMP-0001", campaigns[0].CampaignID)
	assert.Equal(t, []string{"evt-a", "evt-b"}, campaigns[0].EventIDs)

	correlations, err := jsonl.ReadCorrelationsFile(cfg.Pipeline.Paths.Correlations)
	require.NoError(t, err)
	require.Len(t, correlations, 3)
	require.NotNil(t, correlations[0].CampaignID)
	assert.Equal(t, "CAMP-0001", *correlations[0].CampaignID)
	assert.Nil(t, correlations[2].CampaignID)

	scores, err := jsonl.ReadScoresFile(cfg.Pipeline.Paths.Scores)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "evt-a", scores[0].EventID)
	assert.Contains(t, scores[0].Rationale, "correlation_conf")
}

func TestRunner_ScoringStandaloneReadsCorrelationFile(t *testing.T) {
	cfg := testPipelineConfig(t, []string{StageCorrelation})
	writeTestEvidence(t, cfg.Pipeline.Paths)

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	// A second invocation runs scoring alone against the written files.
	cfg.Pipeline.Stages = []string{StageScoring}
	runner = NewRunner(cfg, Sinks{}, logger.Nop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Scores)

	scores, err := jsonl.ReadScoresFile(cfg.Pipeline.Paths.Scores)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	// Correlation confidence flowed in from the file, not from this run.
	assert.Greater(t, scores[0].Rationale["correlation_conf"], 0.0)
}

func TestRunner_RerunsAreIdempotent(t *testing.T) {
	cfg := testPipelineConfig(t, []string{StageCorrelation, StageScoring})
	writeTestEvidence(t, cfg.Pipeline.Paths)

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	_, err := runner.Run(context.Background())
	require.NoError(t, err)

	firstCorrelations, err := jsonl.ReadCorrelationsFile(cfg.Pipeline.Paths.Correlations)
	require.NoError(t, err)
	firstScores, err := jsonl.ReadScoresFile(cfg.Pipeline.Paths.Scores)
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	secondCorrelations, err := jsonl.ReadCorrelationsFile(cfg.Pipeline.Paths.Correlations)
	require.NoError(t, err)
	secondScores, err := jsonl.ReadScoresFile(cfg.Pipeline.Paths.Scores)
	require.NoError(t, err)

	assert.Equal(t, firstCorrelations, secondCorrelations)
	assert.Equal(t, firstScores, secondScores)
}

func TestRunner_MissingInputsYieldEmptyRun(t *testing.T) {
	cfg := testPipelineConfig(t, []string{StageCorrelation, StageScoring})

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Events)
	assert.Equal(t, 0, summary.Campaigns)
	assert.Equal(t, 0, summary.Scores)
}

func TestRunner_UnknownStageFailsFast(t *testing.T) {
	cfg := testPipelineConfig(t, []string{"enrichment"})

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestRunner_StageFailuresCollectedWithoutFailFast(t *testing.T) {
	// Storage without a database connection fails its stage; the rest of the
	// run still completes.
	cfg := testPipelineConfig(t, []string{StageCorrelation, StageStorage, StageScoring})
	cfg.Pipeline.FailFast = false
	writeTestEvidence(t, cfg.Pipeline.Paths)

	runner := NewRunner(cfg, Sinks{}, logger.Nop())
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{StageStorage}, summary.FailedStages)
	assert.Equal(t, 3, summary.Scores)
}
