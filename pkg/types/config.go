// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"
)

// CriticBackend identifies the text-generation service behind the critics.
type CriticBackend string

const (
	BackendGemini CriticBackend = "gemini"
	BackendClaude CriticBackend = "claude"
)

// Sternness tunes how harshly the review critic grades.
type Sternness string

const (
	SternnessGentle   Sternness = "gentle"
	SternnessStandard Sternness = "standard"
	SternnessHarsh    Sternness = "harsh"
)

// ParseSternness resolves a sternness name, case-insensitively.
func ParseSternness(name string) (Sternness, error) {
	switch s := Sternness(strings.ToLower(strings.TrimSpace(name))); s {
	case SternnessGentle, SternnessStandard, SternnessHarsh:
		return s, nil
	}
	return "", fmt.Errorf("unknown sternness %q", name)
}

// AIConfig holds shared settings for components that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-2.5-flash").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for rate-limited calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CriticConfig holds settings for the critic client.
type CriticConfig struct {
	AIConfig `yaml:",inline"`

	// Backend selects the generation service: gemini or claude.
	Backend CriticBackend `json:"backend" yaml:"backend"`

	// RetryBaseDelay is the first backoff delay; each retry doubles it (default 1s).
	RetryBaseDelay time.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`

	// Sternness is passed to the review critic (default standard).
	Sternness Sternness `json:"sternness" yaml:"sternness"`
}

// AnalysisConfig holds settings for the analysis engine.
type AnalysisConfig struct {
	// BatchSize is the number of goals analyzed concurrently (default 4).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Debounce is the quiet period after an edit before re-analysis (default 500ms).
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// HintConfig holds settings for the hint scheduler.
type HintConfig struct {
	// Mode is strict, lenient, or disabled (default strict).
	Mode string `json:"mode" yaml:"mode"`
}

// StoreDriver selects the document store implementation.
type StoreDriver string

const (
	DriverSQLite StoreDriver = "sqlite"
	DriverRedis  StoreDriver = "redis"
)

// PersistenceConfig holds settings for the document store and event log.
type PersistenceConfig struct {
	// Driver selects sqlite or redis for documents (default sqlite).
	Driver StoreDriver `json:"driver" yaml:"driver"`

	// SQLitePath is the database file for documents and events.
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`

	// RedisAddr is the host:port of the Redis server.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// RedisPassword is optional.
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`

	// RedisDB is the logical database number.
	RedisDB int `json:"redis_db" yaml:"redis_db"`

	// SaveDebounce is the quiet period before an edit is persisted (default 2s).
	SaveDebounce time.Duration `json:"save_debounce" yaml:"save_debounce"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// JWTSecret signs session and custom sign-in tokens.
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`

	// TokenTTL is the lifetime of issued session tokens (default 24h).
	TokenTTL time.Duration `json:"token_ttl" yaml:"token_ttl"`
}

// AppConfig groups every component configuration.
type AppConfig struct {
	Critic      CriticConfig      `json:"critic" yaml:"critic"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis"`
	Hint        HintConfig        `json:"hint" yaml:"hint"`
	Persistence PersistenceConfig `json:"persistence" yaml:"persistence"`
	Server      ServerConfig      `json:"server" yaml:"server"`
}

// DefaultAppConfig returns the configuration used when nothing is overridden.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Critic: CriticConfig{
			AIConfig: AIConfig{
				Model:      "gemini-2.5-flash",
				MaxRetries: 3,
			},
			Backend:        BackendGemini,
			RetryBaseDelay: time.Second,
			Sternness:      SternnessStandard,
		},
		Analysis: AnalysisConfig{
			BatchSize: 4,
			Debounce:  500 * time.Millisecond,
		},
		Hint: HintConfig{Mode: "strict"},
		Persistence: PersistenceConfig{
			Driver:       DriverSQLite,
			SQLitePath:   "goalwriter.db",
			RedisAddr:    "localhost:6379",
			SaveDebounce: 2 * time.Second,
		},
		Server: ServerConfig{
			Addr:     ":8080",
			TokenTTL: 24 * time.Hour,
		},
	}
}
