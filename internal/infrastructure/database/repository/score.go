package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ctiforge/internal/domain/models"
)

// ScoreRepository handles severity score persistence
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new score repository
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// UpsertBatch stores one run's severity scores, keyed by event_id
func (r *ScoreRepository) UpsertBatch(ctx context.Context, scores []models.ScoreResult) error {
	if len(scores) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO score_results (
			event_id, severity, severity_label, confidence, rationale, updated_at
		) VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (event_id) DO UPDATE SET
			severity = EXCLUDED.severity,
			severity_label = EXCLUDED.severity_label,
			confidence = EXCLUDED.confidence,
			rationale = EXCLUDED.rationale,
			updated_at = now()`

	for _, score := range scores {
		batch.Queue(query,
			score.EventID, score.Severity, string(score.SeverityLabel),
			score.Confidence, score.Rationale,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range scores {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert score: %w", err)
		}
	}
	return nil
}

// List returns stored scores, optionally filtered by label and minimum
// severity, ordered by severity descending then event_id
func (r *ScoreRepository) List(ctx context.Context, label string, minSeverity float64, limit, offset int) ([]models.ScoreResult, int64, error) {
	where := "WHERE severity >= $1"
	args := []any{minSeverity}
	if label != "" {
		where += " AND severity_label = $2"
		args = append(args, label)
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM score_results " + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count scores: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT event_id, severity, severity_label, confidence, rationale
		FROM score_results
		%s
		ORDER BY severity DESC, event_id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scores: %w", err)
	}
	defer rows.Close()

	var scores []models.ScoreResult
	for rows.Next() {
		var score models.ScoreResult
		var label string
		if err := rows.Scan(
			&score.EventID, &score.Severity, &label, &score.Confidence, &score.Rationale,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan score: %w", err)
		}
		score.SeverityLabel = models.SeverityLabel(label)
		scores = append(scores, score)
	}
	return scores, total, rows.Err()
}

// GetByEventID retrieves one event's score
func (r *ScoreRepository) GetByEventID(ctx context.Context, eventID string) (*models.ScoreResult, error) {
	query := `
		SELECT event_id, severity, severity_label, confidence, rationale
		FROM score_results
		WHERE event_id = $1`

	var score models.ScoreResult
	var label string
	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&score.EventID, &score.Severity, &label, &score.Confidence, &score.Rationale,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	score.SeverityLabel = models.SeverityLabel(label)
	return &score, nil
}
