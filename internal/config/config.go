package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	RoundsPerSet int `json:"rounds_per_set"`
	TotalSets    int `json:"total_sets"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before adding a bot to a solo human lobby.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelaySeconds      int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds      int `json:"bot_max_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetRoundsPerSet returns the configured rounds per set, or the
// standard three.
func GetRoundsPerSet() int {
	if cfg == nil || cfg.RoundsPerSet <= 0 {
		return 3
	}
	return cfg.RoundsPerSet
}

// GetTotalSets returns the configured set count, or the standard four.
func GetTotalSets() int {
	if cfg == nil || cfg.TotalSets <= 0 {
		return 4
	}
	return cfg.TotalSets
}
