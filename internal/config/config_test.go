package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PARLO_DB", "")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PARLO_DB", "/tmp/custom.db")
	t.Setenv("PARLO_HEARTS_MAX", "8")
	t.Setenv("PARLO_HEARTS_REGEN_PERIOD", "15m")
	t.Setenv("PARLO_MASTERY_DECAY_RATE", "3")
	t.Setenv("PARLO_GOAL_TARGET_XP", "100")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath)
	assert.Equal(t, 8, cfg.Hearts.Max)
	assert.Equal(t, 15*time.Minute, cfg.Hearts.RegenPeriod)
	assert.Equal(t, 3, cfg.Mastery.DecayRatePerDay)
	assert.Equal(t, 100, cfg.Goal.TargetXP)
	// Untouched fields keep their defaults.
	assert.Equal(t, 72*time.Hour, cfg.Mastery.PracticeInterval)
	assert.Equal(t, 20, cfg.Goal.BaseRewardXP)
}

func TestFromEnvRejectsBadValue(t *testing.T) {
	t.Setenv("PARLO_HEARTS_MAX", "five")
	_, err := FromEnv()
	assert.Error(t, err)
}

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestApplyTuning(t *testing.T) {
	path := writeTuning(t, `{
		"hearts": {"max": 10, "regen_period": "10m"},
		"mastery": {"decay_rate_per_day": 2},
		"goal": {"target_xp": 80}
	}`)

	cfg, err := ApplyTuning(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Hearts.Max)
	assert.Equal(t, 10*time.Minute, cfg.Hearts.RegenPeriod)
	assert.Equal(t, 2, cfg.Mastery.DecayRatePerDay)
	assert.Equal(t, 80, cfg.Goal.TargetXP)
	// Absent fields are left alone.
	assert.Equal(t, 60*time.Second, cfg.Mastery.SpeedTarget)
	assert.Equal(t, 10, cfg.Goal.BaseRewardCoins)
}

func TestApplyTuningCompoundDurations(t *testing.T) {
	path := writeTuning(t, `{
		"hearts": {"regen_period": "1h30m"},
		"mastery": {"speed_target": "1.5m"}
	}`)

	cfg, err := ApplyTuning(Default(), path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, cfg.Hearts.RegenPeriod)
	assert.Equal(t, 90*time.Second, cfg.Mastery.SpeedTarget)
}

func TestApplyTuningRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", `{"stamina": {"max": 5}}`},
		{"zero hearts", `{"hearts": {"max": 0}}`},
		{"negative decay", `{"mastery": {"decay_rate_per_day": -1}}`},
		{"bad duration", `{"hearts": {"regen_period": "soon"}}`},
		{"wrong type", `{"goal": {"target_xp": "fifty"}}`},
		{"not json", `target_xp = 50`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTuning(t, tt.body)
			_, err := ApplyTuning(Default(), path)
			assert.Error(t, err)
		})
	}
}

func TestApplyTuningMissingFile(t *testing.T) {
	_, err := ApplyTuning(Default(), filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestEngineConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Hearts.Max = 7
	cfg.Mastery.BaseIncrease = 25
	cfg.Goal.TargetXP = 60

	assert.Equal(t, 7, cfg.HeartsConfig().Max)
	assert.Equal(t, 30*time.Minute, cfg.HeartsConfig().RegenPeriod)
	assert.Equal(t, 25, cfg.MasteryConfig().BaseIncrease)
	assert.Equal(t, 60, cfg.GoalConfig().TargetXP)
}
