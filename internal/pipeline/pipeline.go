// Package pipeline orchestrates the correlation and scoring stages over
// line-delimited JSON evidence files, with optional storage, publish and
// cache side effects that run strictly after the core stages.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/internal/domain/services"
	"ctiforge/internal/infrastructure/cache"
	"ctiforge/internal/infrastructure/database/repository"
	"ctiforge/internal/jsonl"
	"ctiforge/internal/streaming"
	"ctiforge/pkg/logger"
)

// Stage names accepted in pipeline.stages
const (
	StageCorrelation = "correlation"
	StageScoring     = "scoring"
	StageStorage     = "storage"
	StagePublish     = "publish"
)

// Sinks holds the optional side-effect collaborators. Any of them may be
// nil; the corresponding stage then reports an error instead of silently
// doing nothing.
type Sinks struct {
	Repos     *repository.Repositories
	Cache     *cache.RedisCache
	Publisher *streaming.NATSPublisher
}

// Runner executes the configured stages of one pipeline run
type Runner struct {
	config      *config.Config
	sinks       Sinks
	correlation *services.CorrelationEngine
	scoring     *services.ScoringEngine
	logger      *logger.Logger
}

// NewRunner creates a pipeline runner
func NewRunner(cfg *config.Config, sinks Sinks, log *logger.Logger) *Runner {
	return &Runner{
		config:      cfg,
		sinks:       sinks,
		correlation: services.NewCorrelationEngine(cfg.Correlation, log),
		scoring:     services.NewScoringEngine(cfg.Scoring, log),
		logger:      log.WithComponent("pipeline"),
	}
}

// runState carries intermediate results between stages of one run. Stages
// that did not run in this invocation fall back to the output files of a
// previous one.
type runState struct {
	correlations []models.CorrelationResult
	campaigns    []models.Campaign
	scores       []models.ScoreResult

	correlationRan bool
	scoringRan     bool
}

// Run executes the configured stages in order and returns the run summary.
// With fail_fast enabled the first stage error aborts the run; otherwise
// failures are collected per stage and the remaining stages continue.
func (r *Runner) Run(ctx context.Context) (*cache.RunSummary, error) {
	runID := uuid.New().String()
	log := r.logger.WithRunID(runID)
	startedAt := time.Now()

	log.Info().Strs("stages", r.config.Pipeline.Stages).Bool("fail_fast", r.config.Pipeline.FailFast).Msg("pipeline start")

	state := &runState{}
	summary := &cache.RunSummary{
		RunID:     runID,
		StartedAt: startedAt.UTC(),
	}

	for _, stage := range r.config.Pipeline.Stages {
		stageLog := log.WithStage(stage)
		stageLog.Info().Msg("stage start")

		var err error
		switch stage {
		case StageCorrelation:
			err = r.runCorrelation(state, summary)
		case StageScoring:
			err = r.runScoring(state, summary)
		case StageStorage:
			err = r.runStorage(ctx, state)
		case StagePublish:
			err = r.runPublish(ctx, runID, state)
		default:
			err = fmt.Errorf("unknown stage: %s", stage)
		}

		if err != nil {
			if r.config.Pipeline.FailFast {
				return nil, fmt.Errorf("stage %s: %w", stage, err)
			}
			stageLog.Error().Err(err).Msg("stage failed, continuing")
			summary.FailedStages = append(summary.FailedStages, stage)
			continue
		}
		stageLog.Info().Msg("stage complete")
	}

	summary.Duration = time.Since(startedAt)

	if r.sinks.Cache != nil {
		if err := r.sinks.Cache.SetLastRun(ctx, *summary, 7*24*time.Hour); err != nil {
			log.Warn().Err(err).Msg("failed to cache run summary")
		}
	}

	log.Info().
		Dur("duration", summary.Duration).
		Int("events", summary.Events).
		Int("campaigns", summary.Campaigns).
		Int("scores", summary.Scores).
		Msg("pipeline complete")

	return summary, nil
}

// runCorrelation reads the evidence inputs, runs the correlation engine and
// writes correlation results and campaigns
func (r *Runner) runCorrelation(state *runState, summary *cache.RunSummary) error {
	paths := r.config.Pipeline.Paths

	events, err := jsonl.ReadEventsFile(paths.Events)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	iocs, err := jsonl.ReadIOCsFile(paths.IOCs)
	if err != nil {
		return fmt.Errorf("failed to read iocs: %w", err)
	}
	analyses, err := jsonl.ReadAnalysesFile(paths.Analyses)
	if err != nil {
		return fmt.Errorf("failed to read analyses: %w", err)
	}

	results, campaigns := r.correlation.Correlate(events, iocs, analyses)
	state.correlations = results
	state.campaigns = campaigns
	state.correlationRan = true
	summary.Events = len(events)
	summary.Correlations = len(results)
	summary.Campaigns = len(campaigns)

	if _, err := jsonl.WriteFile(paths.Correlations, results); err != nil {
		return fmt.Errorf("failed to write correlation results: %w", err)
	}
	if _, err := jsonl.WriteFile(paths.Campaigns, campaigns); err != nil {
		return fmt.Errorf("failed to write campaigns: %w", err)
	}
	return nil
}

// runScoring reads analyses, correlation results and indicator counts, runs
// the scoring engine and writes scores
func (r *Runner) runScoring(state *runState, summary *cache.RunSummary) error {
	paths := r.config.Pipeline.Paths

	analyses, err := jsonl.ReadAnalysesFile(paths.Analyses)
	if err != nil {
		return fmt.Errorf("failed to read analyses: %w", err)
	}
	iocs, err := jsonl.ReadIOCsFile(paths.IOCs)
	if err != nil {
		return fmt.Errorf("failed to read iocs: %w", err)
	}

	correlations := state.correlations
	if !state.correlationRan {
		correlations, err = jsonl.ReadCorrelationsFile(paths.Correlations)
		if err != nil {
			return fmt.Errorf("failed to read correlation results: %w", err)
		}
	}

	scores := r.scoring.Score(analyses, correlations, jsonl.CountIOCsByEvent(iocs))
	state.scores = scores
	state.scoringRan = true
	summary.Scores = len(scores)

	if _, err := jsonl.WriteFile(paths.Scores, scores); err != nil {
		return fmt.Errorf("failed to write scores: %w", err)
	}
	return nil
}

// runStorage persists the run's outputs to Postgres. It runs strictly after
// the core stages; outputs missing from this invocation are loaded from the
// stage files so storage can run standalone.
func (r *Runner) runStorage(ctx context.Context, state *runState) error {
	if r.sinks.Repos == nil {
		return fmt.Errorf("storage stage requires a database connection")
	}
	paths := r.config.Pipeline.Paths

	correlations := state.correlations
	campaigns := state.campaigns
	if !state.correlationRan {
		var err error
		if correlations, err = jsonl.ReadCorrelationsFile(paths.Correlations); err != nil {
			return fmt.Errorf("failed to read correlation results: %w", err)
		}
		if campaigns, err = jsonl.ReadCampaignsFile(paths.Campaigns); err != nil {
			return fmt.Errorf("failed to read campaigns: %w", err)
		}
	}

	scores := state.scores
	if !state.scoringRan {
		var err error
		if scores, err = jsonl.ReadScoresFile(paths.Scores); err != nil {
			return fmt.Errorf("failed to read scores: %w", err)
		}
	}

	if err := r.sinks.Repos.Campaigns.UpsertBatch(ctx, campaigns); err != nil {
		return err
	}
	if err := r.sinks.Repos.Correlations.UpsertBatch(ctx, correlations); err != nil {
		return err
	}
	if err := r.sinks.Repos.Scores.UpsertBatch(ctx, scores); err != nil {
		return err
	}

	r.logger.Info().
		Int("campaigns", len(campaigns)).
		Int("correlations", len(correlations)).
		Int("scores", len(scores)).
		Msg("results stored")
	return nil
}

// runPublish emits campaign-detected events for this run's campaigns
func (r *Runner) runPublish(ctx context.Context, runID string, state *runState) error {
	if r.sinks.Publisher == nil {
		return fmt.Errorf("publish stage requires a NATS connection")
	}

	campaigns := state.campaigns
	if !state.correlationRan {
		var err error
		if campaigns, err = jsonl.ReadCampaignsFile(r.config.Pipeline.Paths.Campaigns); err != nil {
			return fmt.Errorf("failed to read campaigns: %w", err)
		}
	}

	published, err := r.sinks.Publisher.PublishCampaigns(ctx, runID, campaigns)
	if err != nil {
		return err
	}

	r.logger.Info().Int("published", published).Msg("campaign events published")
	return nil
}
