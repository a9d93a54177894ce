package jsonl

import (
	"encoding/json"
	"fmt"
	"io"

	"ctiforge/internal/domain/models"
)

// Readers for records this pipeline itself produces. They let later stages
// (storage, scoring) run in a separate invocation from the stage that wrote
// the file.

// ReadCorrelations decodes correlation result records
func ReadCorrelations(r io.Reader) ([]models.CorrelationResult, error) {
	var results []models.CorrelationResult
	err := decodeLines(r, func(line []byte) error {
		var res models.CorrelationResult
		if err := json.Unmarshal(line, &res); err != nil {
			return err
		}
		if res.EventID == "" {
			return fmt.Errorf("correlation record missing event_id")
		}
		results = append(results, res)
		return nil
	})
	return results, err
}

// ReadCampaigns decodes campaign records
func ReadCampaigns(r io.Reader) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := decodeLines(r, func(line []byte) error {
		var campaign models.Campaign
		if err := json.Unmarshal(line, &campaign); err != nil {
			return err
		}
		if campaign.CampaignID == "" {
			return fmt.Errorf("campaign record missing campaign_id")
		}
		campaigns = append(campaigns, campaign)
		return nil
	})
	return campaigns, err
}

// ReadScores decodes severity score records
func ReadScores(r io.Reader) ([]models.ScoreResult, error) {
	var scores []models.ScoreResult
	err := decodeLines(r, func(line []byte) error {
		var score models.ScoreResult
		if err := json.Unmarshal(line, &score); err != nil {
			return err
		}
		if score.EventID == "" {
			return fmt.Errorf("score record missing event_id")
		}
		scores = append(scores, score)
		return nil
	})
	return scores, err
}

// ReadCorrelationsFile reads correlation results from path; a missing file
// yields an empty set
func ReadCorrelationsFile(path string) ([]models.CorrelationResult, error) {
	return readFile(path, ReadCorrelations)
}

// ReadCampaignsFile reads campaigns from path; a missing file yields an
// empty set
func ReadCampaignsFile(path string) ([]models.Campaign, error) {
	return readFile(path, ReadCampaigns)
}

// ReadScoresFile reads scores from path; a missing file yields an empty set
func ReadScoresFile(path string) ([]models.ScoreResult, error) {
	return readFile(path, ReadScores)
}
