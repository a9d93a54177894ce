package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctiforge/internal/domain/models"
)

// CorrelationRepository handles per-event correlation result persistence
type CorrelationRepository struct {
	pool *pgxpool.Pool
}

// NewCorrelationRepository creates a new correlation repository
func NewCorrelationRepository(pool *pgxpool.Pool) *CorrelationRepository {
	return &CorrelationRepository{pool: pool}
}

// UpsertBatch stores one run's correlation results, keyed by event_id
func (r *CorrelationRepository) UpsertBatch(ctx context.Context, results []models.CorrelationResult) error {
	if len(results) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO correlation_results (
			event_id, campaign_id, shared_iocs, temporal_cluster,
			mitre_tactics, confidence, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (event_id) DO UPDATE SET
			campaign_id = EXCLUDED.campaign_id,
			shared_iocs = EXCLUDED.shared_iocs,
			temporal_cluster = EXCLUDED.temporal_cluster,
			mitre_tactics = EXCLUDED.mitre_tactics,
			confidence = EXCLUDED.confidence,
			updated_at = now()`

	for _, res := range results {
		batch.Queue(query,
			res.EventID, res.CampaignID, res.SharedIOCs, res.TemporalCluster,
			res.MitreTactics, res.Confidence,
		)
	}

	batchResults := r.pool.SendBatch(ctx, batch)
	defer batchResults.Close()

	for range results {
		if _, err := batchResults.Exec(); err != nil {
			return fmt.Errorf("failed to upsert correlation result: %w", err)
		}
	}
	return nil
}

// ListByCampaign returns the correlation results belonging to a campaign
func (r *CorrelationRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.CorrelationResult, error) {
	query := `
		SELECT event_id, campaign_id, shared_iocs, temporal_cluster,
			   mitre_tactics, confidence
		FROM correlation_results
		WHERE campaign_id = $1
		ORDER BY event_id`

	rows, err := r.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list correlation results: %w", err)
	}
	defer rows.Close()

	var results []models.CorrelationResult
	for rows.Next() {
		var res models.CorrelationResult
		if err := rows.Scan(
			&res.EventID, &res.CampaignID, &res.SharedIOCs, &res.TemporalCluster,
			&res.MitreTactics, &res.Confidence,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correlation result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
