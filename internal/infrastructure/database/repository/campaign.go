package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctiforge/internal/domain/models"
)

// CampaignRepository handles campaign persistence
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// UpsertBatch stores the campaigns produced by one correlation run. Existing
// rows with the same campaign_id are refreshed: each run recomputes the
// campaign set from scratch and the latest run wins.
func (r *CampaignRepository) UpsertBatch(ctx context.Context, campaigns []models.Campaign) error {
	if len(campaigns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO campaigns (
			campaign_id, name, start_time, end_time,
			event_ids, iocs, mitre_tactics, confidence, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (campaign_id) DO UPDATE SET
			name = EXCLUDED.name,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			event_ids = EXCLUDED.event_ids,
			iocs = EXCLUDED.iocs,
			mitre_tactics = EXCLUDED.mitre_tactics,
			confidence = EXCLUDED.confidence,
			updated_at = now()`

	for _, c := range campaigns {
		batch.Queue(query,
			c.CampaignID, c.Name, c.StartTime, c.EndTime,
			c.EventIDs, c.IOCs, c.MitreTactics, c.Confidence,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range campaigns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert campaign: %w", err)
		}
	}
	return nil
}

// List returns all stored campaigns ordered by campaign_id
func (r *CampaignRepository) List(ctx context.Context, limit, offset int) ([]models.Campaign, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM campaigns").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count campaigns: %w", err)
	}

	query := `
		SELECT campaign_id, name, start_time, end_time,
			   event_ids, iocs, mitre_tactics, confidence
		FROM campaigns
		ORDER BY campaign_id
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(
			&c.CampaignID, &c.Name, &c.StartTime, &c.EndTime,
			&c.EventIDs, &c.IOCs, &c.MitreTactics, &c.Confidence,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

// GetByID retrieves one campaign
func (r *CampaignRepository) GetByID(ctx context.Context, campaignID string) (*models.Campaign, error) {
	query := `
		SELECT campaign_id, name, start_time, end_time,
			   event_ids, iocs, mitre_tactics, confidence
		FROM campaigns
		WHERE campaign_id = $1`

	var c models.Campaign
	err := r.pool.QueryRow(ctx, query, campaignID).Scan(
		&c.CampaignID, &c.Name, &c.StartTime, &c.EndTime,
		&c.EventIDs, &c.IOCs, &c.MitreTactics, &c.Confidence,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return &c, nil
}
