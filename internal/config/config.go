// Package config assembles engine tuning from defaults, environment
// variables, and an optional schema-validated tuning file, in that order.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tmodak/parlo/internal/hearts"
	"github.com/tmodak/parlo/internal/mastery"
	"github.com/tmodak/parlo/internal/streak"
)

// Config holds every tunable the engines expose.
type Config struct {
	DBPath  string        `env:"PARLO_DB"`
	Hearts  HeartsConfig  `envPrefix:"PARLO_HEARTS_"`
	Mastery MasteryConfig `envPrefix:"PARLO_MASTERY_"`
	Goal    GoalConfig    `envPrefix:"PARLO_GOAL_"`
}

// HeartsConfig tunes the regeneration engine.
type HeartsConfig struct {
	Max         int           `env:"MAX"          envDefault:"5"    json:"max"`
	RegenPeriod time.Duration `env:"REGEN_PERIOD" envDefault:"30m"  json:"regen_period"`
}

// MasteryConfig tunes the decay engine and the practice reward formula.
type MasteryConfig struct {
	DecayRatePerDay  int           `env:"DECAY_RATE"        envDefault:"5"   json:"decay_rate_per_day"`
	PracticeInterval time.Duration `env:"PRACTICE_INTERVAL" envDefault:"72h" json:"practice_interval"`
	BaseIncrease     int           `env:"BASE_INCREASE"     envDefault:"20"  json:"base_increase"`
	SpeedTarget      time.Duration `env:"SPEED_TARGET"      envDefault:"60s" json:"speed_target"`
	MaxSpeedBonus    int           `env:"MAX_SPEED_BONUS"   envDefault:"10"  json:"max_speed_bonus"`
	MistakePenalty   int           `env:"MISTAKE_PENALTY"   envDefault:"2"   json:"mistake_penalty"`
}

// GoalConfig tunes the daily goal and its completion reward.
type GoalConfig struct {
	TargetXP        int `env:"TARGET_XP"    envDefault:"50" json:"target_xp"`
	BaseRewardXP    int `env:"REWARD_XP"    envDefault:"20" json:"base_reward_xp"`
	BaseRewardCoins int `env:"REWARD_COINS" envDefault:"10" json:"base_reward_coins"`
}

// Default returns the built-in tuning with no environment applied.
func Default() Config {
	return Config{
		Hearts: HeartsConfig{Max: 5, RegenPeriod: 30 * time.Minute},
		Mastery: MasteryConfig{
			DecayRatePerDay:  5,
			PracticeInterval: 72 * time.Hour,
			BaseIncrease:     20,
			SpeedTarget:      60 * time.Second,
			MaxSpeedBonus:    10,
			MistakePenalty:   2,
		},
		Goal: GoalConfig{TargetXP: 50, BaseRewardXP: 20, BaseRewardCoins: 10},
	}
}

// FromEnv loads configuration from the environment on top of the defaults.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HeartsConfig converts to the engine's config type.
func (c Config) HeartsConfig() hearts.Config {
	return hearts.Config{
		Max:         c.Hearts.Max,
		RegenPeriod: c.Hearts.RegenPeriod,
	}
}

// MasteryConfig converts to the engine's config type.
func (c Config) MasteryConfig() mastery.Config {
	return mastery.Config{
		DecayRatePerDay:  c.Mastery.DecayRatePerDay,
		PracticeInterval: c.Mastery.PracticeInterval,
		BaseIncrease:     c.Mastery.BaseIncrease,
		SpeedTarget:      c.Mastery.SpeedTarget,
		MaxSpeedBonus:    c.Mastery.MaxSpeedBonus,
		MistakePenalty:   c.Mastery.MistakePenalty,
	}
}

// GoalConfig converts to the engine's config type.
func (c Config) GoalConfig() streak.Config {
	return streak.Config{
		TargetXP:        c.Goal.TargetXP,
		BaseRewardXP:    c.Goal.BaseRewardXP,
		BaseRewardCoins: c.Goal.BaseRewardCoins,
	}
}
