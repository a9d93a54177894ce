package services

import (
	"sort"
	"time"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/pkg/logger"
)

// ScoringEngine derives a severity score and label per event from classifier
// confidences, correlation output and indicator volume. Events without an
// AnalysisResult are excluded: severity needs at least a classification
// signal.
type ScoringEngine struct {
	config config.ScoringConfig
	logger *logger.Logger
}

// NewScoringEngine creates a new scoring engine
func NewScoringEngine(cfg config.ScoringConfig, log *logger.Logger) *ScoringEngine {
	return &ScoringEngine{
		config: cfg,
		logger: log.WithComponent("scoring-engine"),
	}
}

// Score computes one ScoreResult per analyzed event. A missing
// CorrelationResult or a zero indicator count degrades the relevant terms
// to zero rather than failing.
func (e *ScoringEngine) Score(analyses []models.AnalysisResult, correlations []models.CorrelationResult, iocCounts map[string]int) []models.ScoreResult {
	startTime := time.Now()

	correlationMap := make(map[string]models.CorrelationResult, len(correlations))
	for _, corr := range correlations {
		correlationMap[corr.EventID] = corr
	}

	results := make([]models.ScoreResult, 0, len(analyses))
	for _, analysis := range analyses {
		corr, hasCorr := correlationMap[analysis.EventID]

		iocScore := float64(iocCounts[analysis.EventID]) / 10.0
		if iocScore > 1 {
			iocScore = 1
		}

		mitreScore := 0.0
		corrConf := 0.0
		if hasCorr {
			mitreScore = float64(len(corr.MitreTactics)) / 5.0
			if mitreScore > 1 {
				mitreScore = 1
			}
			corrConf = corr.Confidence
		}

		weights := e.config.Weights
		severity := clamp(
			weights.IncidentConf*analysis.IncidentConfidence+
				weights.SectorConf*analysis.SectorConfidence+
				weights.CorrelationConf*corrConf+
				weights.IOCCount*iocScore+
				weights.MitreTactics*mitreScore,
			0, 1)

		// Report the strongest single signal, not an average: one certain
		// channel should not be dragged down by a silent one.
		confidence := analysis.IncidentConfidence
		if corrConf > confidence {
			confidence = corrConf
		}

		results = append(results, models.ScoreResult{
			EventID:       analysis.EventID,
			Severity:      severity,
			SeverityLabel: e.severityLabel(severity),
			Confidence:    confidence,
			Rationale: map[string]float64{
				"incident_conf":    analysis.IncidentConfidence,
				"sector_conf":      analysis.SectorConfidence,
				"correlation_conf": corrConf,
				"ioc_score":        iocScore,
				"mitre_score":      mitreScore,
			},
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].EventID < results[j].EventID
	})

	e.logger.Info().
		Int("events", len(results)).
		Dur("duration", time.Since(startTime)).
		Msg("scoring complete")

	return results
}

// severityLabel maps a severity score to its discrete label. Thresholds are
// checked high to low so a boundary value resolves to the higher label.
func (e *ScoringEngine) severityLabel(severity float64) models.SeverityLabel {
	thresholds := e.config.Thresholds
	switch {
	case severity >= thresholds.High:
		return models.SeverityHigh
	case severity >= thresholds.Medium:
		return models.SeverityMedium
	case severity >= thresholds.Low:
		return models.SeverityLow
	default:
		return models.SeverityInformational
	}
}

// clamp clamps a value between min and max
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
