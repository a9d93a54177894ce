package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	URL             string `mapstructure:"url"`
	StreamName      string `mapstructure:"stream_name"`
	CampaignSubject string `mapstructure:"campaign_subject"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// PipelineConfig controls stage selection, failure policy and stage I/O paths.
type PipelineConfig struct {
	Stages   []string      `mapstructure:"stages"`
	FailFast bool          `mapstructure:"fail_fast"`
	Paths    PipelinePaths `mapstructure:"paths"`
}

type PipelinePaths struct {
	Events       string `mapstructure:"events"`
	IOCs         string `mapstructure:"iocs"`
	Analyses     string `mapstructure:"analyses"`
	Correlations string `mapstructure:"correlations"`
	Campaigns    string `mapstructure:"campaigns"`
	Scores       string `mapstructure:"scores"`
}

// CorrelationConfig holds evidence graph and campaign extraction settings.
type CorrelationConfig struct {
	TemporalWindowHours int                `mapstructure:"temporal_window_hours"`
	MinSharedIOCs       int                `mapstructure:"min_shared_iocs"`
	MinCampaignSize     int                `mapstructure:"min_campaign_size"`
	UseAnalysisClusters bool               `mapstructure:"use_analysis_clusters"`
	UseTemporalWindow   bool               `mapstructure:"use_temporal_window"`
	MaxGroupSize        int                `mapstructure:"max_group_size"`
	Weights             CorrelationWeights `mapstructure:"weights"`
}

type CorrelationWeights struct {
	SharedIOC       float64 `mapstructure:"shared_ioc"`
	AnalysisCluster float64 `mapstructure:"analysis_cluster"`
	Temporal        float64 `mapstructure:"temporal"`
	IncidentConf    float64 `mapstructure:"incident_conf"`
	SectorConf      float64 `mapstructure:"sector_conf"`
}

// ScoringConfig holds severity scoring weights and label thresholds.
type ScoringConfig struct {
	Weights    ScoringWeights     `mapstructure:"weights"`
	Thresholds SeverityThresholds `mapstructure:"severity_thresholds"`
}

type ScoringWeights struct {
	IncidentConf    float64 `mapstructure:"incident_conf"`
	SectorConf      float64 `mapstructure:"sector_conf"`
	CorrelationConf float64 `mapstructure:"correlation_conf"`
	IOCCount        float64 `mapstructure:"ioc_count"`
	MitreTactics    float64 `mapstructure:"mitre_tactics"`
}

type SeverityThresholds struct {
	Low    float64 `mapstructure:"low"`
	Medium float64 `mapstructure:"medium"`
	High   float64 `mapstructure:"high"`
}

// setDefaults registers the documented default for every knob so a missing
// or partial config file degrades to defaults instead of failing the run.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ctiforge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ctiforge")
	v.SetDefault("database.dbname", "ctiforge")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "ctiforge:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream_name", "CTIFORGE_THREATS")
	v.SetDefault("nats.campaign_subject", "threats.campaign.detected")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Accept", "Content-Type"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("pipeline.stages", []string{"correlation", "scoring"})
	v.SetDefault("pipeline.fail_fast", true)
	v.SetDefault("pipeline.paths.events", "data/normalized_events.jsonl")
	v.SetDefault("pipeline.paths.iocs", "data/iocs.jsonl")
	v.SetDefault("pipeline.paths.analyses", "data/analysis_results.jsonl")
	v.SetDefault("pipeline.paths.correlations", "data/correlation_results.jsonl")
	v.SetDefault("pipeline.paths.campaigns", "data/campaigns.jsonl")
	v.SetDefault("pipeline.paths.scores", "data/scores.jsonl")

	v.SetDefault("correlation.temporal_window_hours", 24)
	v.SetDefault("correlation.min_shared_iocs", 1)
	v.SetDefault("correlation.min_campaign_size", 2)
	v.SetDefault("correlation.use_analysis_clusters", true)
	v.SetDefault("correlation.use_temporal_window", true)
	v.SetDefault("correlation.max_group_size", 1000)
	v.SetDefault("correlation.weights.shared_ioc", 0.4)
	v.SetDefault("correlation.weights.analysis_cluster", 0.2)
	v.SetDefault("correlation.weights.temporal", 0.2)
	v.SetDefault("correlation.weights.incident_conf", 0.1)
	v.SetDefault("correlation.weights.sector_conf", 0.1)

	v.SetDefault("scoring.weights.incident_conf", 0.35)
	v.SetDefault("scoring.weights.sector_conf", 0.15)
	v.SetDefault("scoring.weights.correlation_conf", 0.30)
	v.SetDefault("scoring.weights.ioc_count", 0.10)
	v.SetDefault("scoring.weights.mitre_tactics", 0.10)
	v.SetDefault("scoring.severity_thresholds.low", 0.3)
	v.SetDefault("scoring.severity_thresholds.medium", 0.6)
	v.SetDefault("scoring.severity_thresholds.high", 0.8)
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/ctiforge")
	}

	v.SetEnvPrefix("CTIFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: run on defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default search paths
func LoadDefault() (*Config, error) {
	return Load("")
}
