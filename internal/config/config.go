// Package config provides configuration loading and validation for the
// matching engine.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Scoring holds the policy constants of the baseline scorer and the
// auto-resolve thresholds. These are deliberately configuration, not code:
// the weights are institutional policy and get tuned per deployment.
type Scoring struct {
	// SkillMatchWeight is the points awarded per matched skill tag.
	SkillMatchWeight int `json:"skill_match_weight" validate:"gte=1"`
	// RoleMatchBonus is the points awarded when the candidate's primary
	// role equals the queried need.
	RoleMatchBonus int `json:"role_match_bonus" validate:"gte=0"`
	// CapacityWeight is the points awarded per open slot (groups) or per
	// unassigned topic slot, rewarding near-term fillability.
	CapacityWeight int `json:"capacity_weight" validate:"gte=0"`
	// BalancePenalty is the points subtracted when the candidate would
	// worsen the team's role imbalance.
	BalancePenalty int `json:"balance_penalty" validate:"gte=0"`
	// MinScore is the minimum baseline score required for auto-resolve to
	// place a student into an existing group.
	MinScore int `json:"min_score" validate:"gte=0"`
	// RerankTopN bounds how many candidates are sent to the LLM reranker.
	RerankTopN int `json:"rerank_top_n" validate:"gte=1,lte=30"`
	// RerankTimeoutSeconds bounds one reranker call; expiry falls back to
	// the baseline order.
	RerankTimeoutSeconds int `json:"rerank_timeout_seconds" validate:"gte=1"`
	// ChunkSizeChars is the extraction chunk budget.
	ChunkSizeChars int `json:"chunk_size_chars" validate:"gte=256"`
}

// RerankTimeout returns the rerank timeout as a duration.
func (s Scoring) RerankTimeout() time.Duration {
	return time.Duration(s.RerankTimeoutSeconds) * time.Second
}

// DefaultScoring returns the scoring policy used when the config file does
// not override it.
func DefaultScoring() Scoring {
	return Scoring{
		SkillMatchWeight:     10,
		RoleMatchBonus:       15,
		CapacityWeight:       2,
		BalancePenalty:       5,
		MinScore:             10,
		RerankTopN:           20,
		RerankTimeoutSeconds: 20,
		ChunkSizeChars:       3500,
	}
}

// Config represents the engine configuration loadable from a JSON file.
// All fields are optional; missing values use defaults or env vars.
type Config struct {
	DatabaseURL string  `json:"database_url,omitempty"`
	APIKey      string  `json:"api_key,omitempty"` // Gemini API key
	Port        int     `json:"port,omitempty" validate:"gte=0,lte=65535"`
	Verbose     bool    `json:"verbose,omitempty"`
	RerankOff   bool    `json:"rerank_off,omitempty"` // force baseline-only ranking
	Scoring     Scoring `json:"scoring"`
}

// Load loads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given. Environment
// variables fill the secrets.
func Default() *Config {
	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		Port:        8080,
		Scoring:     DefaultScoring(),
	}
}

// MergeWithDefaults fills zero-valued fields from defaults and returns the
// result. Bool fields are not merged; flags always win for those.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	zero := Scoring{}
	if result.Scoring == zero {
		result.Scoring = defaults.Scoring
	} else {
		d := defaults.Scoring
		if result.Scoring.SkillMatchWeight == 0 {
			result.Scoring.SkillMatchWeight = d.SkillMatchWeight
		}
		if result.Scoring.RoleMatchBonus == 0 {
			result.Scoring.RoleMatchBonus = d.RoleMatchBonus
		}
		if result.Scoring.CapacityWeight == 0 {
			result.Scoring.CapacityWeight = d.CapacityWeight
		}
		if result.Scoring.BalancePenalty == 0 {
			result.Scoring.BalancePenalty = d.BalancePenalty
		}
		if result.Scoring.MinScore == 0 {
			result.Scoring.MinScore = d.MinScore
		}
		if result.Scoring.RerankTopN == 0 {
			result.Scoring.RerankTopN = d.RerankTopN
		}
		if result.Scoring.RerankTimeoutSeconds == 0 {
			result.Scoring.RerankTimeoutSeconds = d.RerankTimeoutSeconds
		}
		if result.Scoring.ChunkSizeChars == 0 {
			result.Scoring.ChunkSizeChars = d.ChunkSizeChars
		}
	}

	return result
}

// Validate checks the configuration ranges using struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Scoring.MinScore > 0 && c.Scoring.SkillMatchWeight <= 0 {
		return fmt.Errorf("config error: min_score requires a positive skill_match_weight")
	}
	return nil
}
