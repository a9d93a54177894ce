package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories bundles all persistence repositories
type Repositories struct {
	Campaigns    *CampaignRepository
	Correlations *CorrelationRepository
	Scores       *ScoreRepository
}

// NewRepositories creates all repositories sharing one pool
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Campaigns:    NewCampaignRepository(pool),
		Correlations: NewCorrelationRepository(pool),
		Scores:       NewScoreRepository(pool),
	}
}
