// Package config loads the contextkit configuration: JSON file over
// defaults, then CONTEXTKIT_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/dotsetgreg/contextkit/pkg/memory"
)

type Config struct {
	Workspace string       `json:"workspace" env:"CONTEXTKIT_WORKSPACE"`
	AgentID   string       `json:"agent_id" env:"CONTEXTKIT_AGENT_ID"`
	Memory    MemoryConfig `json:"memory"`
	Index     IndexConfig  `json:"index"`
	Budget    BudgetConfig `json:"budget"`
}

// MemoryConfig is the context assembly tuning surface.
type MemoryConfig struct {
	Enabled                   bool    `json:"enabled" env:"CONTEXTKIT_MEMORY_ENABLED"`
	WorkingMemoryBudgetTokens int     `json:"working_memory_budget_tokens" env:"CONTEXTKIT_MEMORY_WORKING_BUDGET_TOKENS"`
	SummaryBudgetTokens       int     `json:"summary_budget_tokens" env:"CONTEXTKIT_MEMORY_SUMMARY_BUDGET_TOKENS"`
	GraphBudgetTokens         int     `json:"graph_budget_tokens" env:"CONTEXTKIT_MEMORY_GRAPH_BUDGET_TOKENS"`
	ChunkBudgetTokens         int     `json:"chunk_budget_tokens" env:"CONTEXTKIT_MEMORY_CHUNK_BUDGET_TOKENS"`
	SummaryRetentionDays      int     `json:"summary_retention_days" env:"CONTEXTKIT_MEMORY_SUMMARY_RETENTION_DAYS"`
	RecallTopK                int     `json:"recall_top_k" env:"CONTEXTKIT_MEMORY_RECALL_TOP_K"`
	MMRLambda                 float64 `json:"mmr_lambda" env:"CONTEXTKIT_MEMORY_MMR_LAMBDA"`
	MMRFetchMultiplier        int     `json:"mmr_fetch_multiplier" env:"CONTEXTKIT_MEMORY_MMR_FETCH_MULTIPLIER"`
}

// IndexConfig tunes the default hybrid semantic index.
type IndexConfig struct {
	DefaultNumResults int     `json:"default_num_results" env:"CONTEXTKIT_INDEX_DEFAULT_NUM_RESULTS"`
	MinThreshold      float64 `json:"min_threshold" env:"CONTEXTKIT_INDEX_MIN_THRESHOLD"`
	HybridWeight      float64 `json:"hybrid_weight" env:"CONTEXTKIT_INDEX_HYBRID_WEIGHT"`
	K1                float64 `json:"k1" env:"CONTEXTKIT_INDEX_K1"`
	B                 float64 `json:"b" env:"CONTEXTKIT_INDEX_B"`
}

// BudgetConfig sizes the outbound request accounting.
type BudgetConfig struct {
	ContextWindowTokens int `json:"context_window_tokens" env:"CONTEXTKIT_BUDGET_CONTEXT_WINDOW_TOKENS"`
	RecentPairsToKeep   int `json:"recent_pairs_to_keep" env:"CONTEXTKIT_BUDGET_RECENT_PAIRS_TO_KEEP"`
}

func DefaultConfig() *Config {
	mem := memory.DefaultConfig()
	return &Config{
		Workspace: "~/.contextkit",
		AgentID:   "default",
		Memory: MemoryConfig{
			Enabled:                   mem.Enabled,
			WorkingMemoryBudgetTokens: mem.WorkingMemoryBudgetTokens,
			SummaryBudgetTokens:       mem.SummaryBudgetTokens,
			GraphBudgetTokens:         mem.GraphBudgetTokens,
			ChunkBudgetTokens:         mem.ChunkBudgetTokens,
			SummaryRetentionDays:      mem.SummaryRetentionDays,
			RecallTopK:                mem.RecallTopK,
			MMRLambda:                 mem.MMRLambda,
			MMRFetchMultiplier:        mem.MMRFetchMultiplier,
		},
		Index: IndexConfig{
			DefaultNumResults: 10,
			MinThreshold:      0.1,
			HybridWeight:      0.6,
			K1:                1.2,
			B:                 0.75,
		},
		Budget: BudgetConfig{
			ContextWindowTokens: 128000,
			RecentPairsToKeep:   3,
		},
	}
}

// LoadConfig reads path over the defaults and applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the config as indented JSON.
func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// WorkspacePath expands a leading ~ in the configured workspace.
func (c *Config) WorkspacePath() string {
	return expandHome(c.Workspace)
}

// MemorySettings converts the config surface to the engine's Config.
func (c *Config) MemorySettings() memory.Config {
	return memory.Config{
		Enabled:                   c.Memory.Enabled,
		WorkingMemoryBudgetTokens: c.Memory.WorkingMemoryBudgetTokens,
		SummaryBudgetTokens:       c.Memory.SummaryBudgetTokens,
		GraphBudgetTokens:         c.Memory.GraphBudgetTokens,
		ChunkBudgetTokens:         c.Memory.ChunkBudgetTokens,
		SummaryRetentionDays:      c.Memory.SummaryRetentionDays,
		RecallTopK:                c.Memory.RecallTopK,
		MMRLambda:                 c.Memory.MMRLambda,
		MMRFetchMultiplier:        c.Memory.MMRFetchMultiplier,
	}
}

// IndexSettings converts the config surface to the index options.
func (c *Config) IndexSettings() memory.IndexOptions {
	return memory.IndexOptions{
		Name:              "contextkit",
		DefaultNumResults: c.Index.DefaultNumResults,
		MinThreshold:      c.Index.MinThreshold,
		HybridWeight:      c.Index.HybridWeight,
		K1:                c.Index.K1,
		B:                 c.Index.B,
	}
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
