package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"ctiforge/internal/config"
	"ctiforge/internal/domain/models"
	"ctiforge/pkg/logger"
)

// CampaignDetectedEvent is the message published when a correlation run
// materializes a campaign
type CampaignDetectedEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	RunID      string          `json:"run_id"`
	Campaign   models.Campaign `json:"campaign"`
	DetectedAt time.Time       `json:"detected_at"`
}

// NATSPublisher publishes campaign detections to NATS JetStream
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	config config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher connects to NATS and ensures the stream exists
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	log = log.WithComponent("nats")

	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	log.Info().Str("url", cfg.URL).Str("stream", cfg.StreamName).Msg("connecting to NATS")

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "ctiforge campaign detections",
		Subjects:    []string{"threats.>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Discard:     jetstream.DiscardOld,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	log.Info().Msg("NATS stream ready")

	return &NATSPublisher{
		conn:   conn,
		js:     js,
		config: cfg,
		logger: log,
	}, nil
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// PublishCampaigns emits one campaign-detected event per campaign. A failed
// publish is logged and counted but does not stop the remaining campaigns.
func (p *NATSPublisher) PublishCampaigns(ctx context.Context, runID string, campaigns []models.Campaign) (int, error) {
	published := 0
	var lastErr error

	for _, campaign := range campaigns {
		event := CampaignDetectedEvent{
			EventID:    uuid.New(),
			RunID:      runID,
			Campaign:   campaign,
			DetectedAt: time.Now().UTC(),
		}

		data, err := json.Marshal(event)
		if err != nil {
			return published, fmt.Errorf("failed to marshal campaign event: %w", err)
		}

		if _, err := p.js.Publish(ctx, p.config.CampaignSubject, data); err != nil {
			p.logger.Warn().Err(err).Str("campaign_id", campaign.CampaignID).Msg("failed to publish campaign event")
			lastErr = err
			continue
		}
		published++
	}

	if lastErr != nil {
		return published, fmt.Errorf("published %d/%d campaign events: %w", published, len(campaigns), lastErr)
	}
	return published, nil
}
