package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the incident pipeline.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Slack      SlackConfig      `yaml:"slack"`
	Jira       JiraConfig       `yaml:"jira"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cache      CacheConfig      `yaml:"cache"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// CompletionConfig configures the text-completion capability. An empty APIKey
// means the capability is absent and every stage uses its fallback.
type CompletionConfig struct {
	APIKey      string        `yaml:"apiKey"`
	BaseURL     string        `yaml:"baseURL"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"maxTokens"`
	Timeout     time.Duration `yaml:"timeout"`
}

// KnowledgeConfig configures the remediation corpus index.
type KnowledgeConfig struct {
	IndexPath      string `yaml:"indexPath"`
	EmbeddingModel string `yaml:"embeddingModel"`
	TopK           int    `yaml:"topK"`
}

// EnrichmentConfig toggles the external context providers.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SlackConfig configures notification delivery. Empty WebhookURL degrades the
// notification stage to simulation mode.
type SlackConfig struct {
	WebhookURL string        `yaml:"webhookURL"`
	ChannelID  string        `yaml:"channelID"`
	Timeout    time.Duration `yaml:"timeout"`
}

// JiraConfig configures the ticket tracker. Empty BaseURL degrades ticketing
// to simulated ticket keys.
type JiraConfig struct {
	BaseURL    string        `yaml:"baseURL"`
	Email      string        `yaml:"email"`
	APIToken   string        `yaml:"apiToken"`
	ProjectKey string        `yaml:"projectKey"`
	Timeout    time.Duration `yaml:"timeout"`
}

// PipelineConfig holds the orchestration caps and timeouts. The caps mirror
// the product defaults (10 plans, 5 tickets, 5 notified plans) but stay
// configurable.
type PipelineConfig struct {
	MaxPlans     int           `yaml:"maxPlans"`
	MaxTickets   int           `yaml:"maxTickets"`
	NotifyLimit  int           `yaml:"notifyLimit"`
	StageTimeout time.Duration `yaml:"stageTimeout"`
	PlaybookDir  string        `yaml:"playbookDir"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls Valkey-backed caching of enrichment lookups.
type CacheConfig struct {
	Enabled            bool          `yaml:"enabled"`
	Addr               string        `yaml:"addr"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	DB                 int           `yaml:"db"`
	DialTimeout        time.Duration `yaml:"dialTimeout"`
	ReadTimeout        time.Duration `yaml:"readTimeout"`
	WriteTimeout       time.Duration `yaml:"writeTimeout"`
	MaxRetries         int           `yaml:"maxRetries"`
	TLS                bool          `yaml:"tls"`
	RecentIncidentsTTL time.Duration `yaml:"recentIncidentsTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("INCIDENT_RCA_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			GracefulTimeout: 10 * time.Second,
		},
		Completion: CompletionConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   2000,
			Timeout:     30 * time.Second,
		},
		Knowledge: KnowledgeConfig{
			IndexPath:      "vector_stores/remediation_kb.json",
			EmbeddingModel: "text-embedding-3-small",
			TopK:           5,
		},
		Enrichment: EnrichmentConfig{Enabled: false},
		Slack:      SlackConfig{Timeout: 5 * time.Second},
		Jira: JiraConfig{
			ProjectKey: "OPS",
			Timeout:    5 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxPlans:     10,
			MaxTickets:   5,
			NotifyLimit:  5,
			StageTimeout: 120 * time.Second,
			PlaybookDir:  "cookbooks",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:            false,
			DialTimeout:        2 * time.Second,
			ReadTimeout:        500 * time.Millisecond,
			WriteTimeout:       500 * time.Millisecond,
			MaxRetries:         2,
			RecentIncidentsTTL: 10 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INCIDENT_RCA_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Completion.APIKey == "" {
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("INCIDENT_RCA_COMPLETION_BASE_URL"); v != "" {
		cfg.Completion.BaseURL = v
	}
	if v := os.Getenv("INCIDENT_RCA_COMPLETION_MODEL"); v != "" {
		cfg.Completion.Model = v
	}
	if v := os.Getenv("INCIDENT_RCA_INDEX_PATH"); v != "" {
		cfg.Knowledge.IndexPath = v
	}
	if v := os.Getenv("INCIDENT_RCA_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.Knowledge.TopK = k
		}
	}
	if v := os.Getenv("INCIDENT_RCA_ENRICHMENT_ENABLED"); v != "" {
		cfg.Enrichment.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Slack.WebhookURL = v
	}
	if v := os.Getenv("SLACK_CHANNEL_ID"); v != "" {
		cfg.Slack.ChannelID = v
	}
	if v := os.Getenv("JIRA_URL"); v != "" {
		cfg.Jira.BaseURL = v
	}
	if v := os.Getenv("JIRA_EMAIL"); v != "" {
		cfg.Jira.Email = v
	}
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		cfg.Jira.APIToken = v
	}
	if v := os.Getenv("JIRA_PROJECT_KEY"); v != "" {
		cfg.Jira.ProjectKey = v
	}
	if v := os.Getenv("INCIDENT_RCA_MAX_PLANS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxPlans = n
		}
	}
	if v := os.Getenv("INCIDENT_RCA_MAX_TICKETS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Pipeline.MaxTickets = n
		}
	}
	if v := os.Getenv("INCIDENT_RCA_STAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.StageTimeout = d
		}
	}
	if v := os.Getenv("INCIDENT_RCA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("INCIDENT_RCA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("INCIDENT_RCA_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("INCIDENT_RCA_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("INCIDENT_RCA_CACHE_RECENT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.RecentIncidentsTTL = d
		}
	}
}
