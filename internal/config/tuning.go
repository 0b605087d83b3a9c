package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// tuningSchema constrains the optional tuning file. Durations are Go
// duration strings; counts and rates must stay in sane ranges so a bad file
// cannot configure an invalid engine.
const tuningSchema = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"hearts": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"max": {"type": "integer", "minimum": 1},
				"regen_period": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"}
			}
		},
		"mastery": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"decay_rate_per_day": {"type": "integer", "minimum": 0},
				"practice_interval": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"},
				"base_increase": {"type": "integer", "minimum": 1},
				"speed_target": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"},
				"max_speed_bonus": {"type": "integer", "minimum": 0},
				"mistake_penalty": {"type": "integer", "minimum": 0}
			}
		},
		"goal": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"target_xp": {"type": "integer", "minimum": 1},
				"base_reward_xp": {"type": "integer", "minimum": 0},
				"base_reward_coins": {"type": "integer", "minimum": 0}
			}
		}
	}
}`

// tuningFile mirrors the file shape; pointers distinguish "absent" from
// "zero".
type tuningFile struct {
	Hearts *struct {
		Max         *int    `json:"max"`
		RegenPeriod *string `json:"regen_period"`
	} `json:"hearts"`
	Mastery *struct {
		DecayRatePerDay  *int    `json:"decay_rate_per_day"`
		PracticeInterval *string `json:"practice_interval"`
		BaseIncrease     *int    `json:"base_increase"`
		SpeedTarget      *string `json:"speed_target"`
		MaxSpeedBonus    *int    `json:"max_speed_bonus"`
		MistakePenalty   *int    `json:"mistake_penalty"`
	} `json:"mastery"`
	Goal *struct {
		TargetXP        *int `json:"target_xp"`
		BaseRewardXP    *int `json:"base_reward_xp"`
		BaseRewardCoins *int `json:"base_reward_coins"`
	} `json:"goal"`
}

// ApplyTuning overlays the JSON tuning file at path onto cfg. The file is
// validated against the embedded schema before any field is read; an
// invalid file changes nothing and returns the validation error.
func ApplyTuning(cfg Config, path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read tuning file: %w", err)
	}

	if err := validateTuning(raw); err != nil {
		return Config{}, err
	}

	var tf tuningFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return Config{}, fmt.Errorf("parse tuning file: %w", err)
	}

	if tf.Hearts != nil {
		setInt(&cfg.Hearts.Max, tf.Hearts.Max)
		if err := setDuration(&cfg.Hearts.RegenPeriod, tf.Hearts.RegenPeriod); err != nil {
			return Config{}, err
		}
	}
	if tf.Mastery != nil {
		setInt(&cfg.Mastery.DecayRatePerDay, tf.Mastery.DecayRatePerDay)
		setInt(&cfg.Mastery.BaseIncrease, tf.Mastery.BaseIncrease)
		setInt(&cfg.Mastery.MaxSpeedBonus, tf.Mastery.MaxSpeedBonus)
		setInt(&cfg.Mastery.MistakePenalty, tf.Mastery.MistakePenalty)
		if err := setDuration(&cfg.Mastery.PracticeInterval, tf.Mastery.PracticeInterval); err != nil {
			return Config{}, err
		}
		if err := setDuration(&cfg.Mastery.SpeedTarget, tf.Mastery.SpeedTarget); err != nil {
			return Config{}, err
		}
	}
	if tf.Goal != nil {
		setInt(&cfg.Goal.TargetXP, tf.Goal.TargetXP)
		setInt(&cfg.Goal.BaseRewardXP, tf.Goal.BaseRewardXP)
		setInt(&cfg.Goal.BaseRewardCoins, tf.Goal.BaseRewardCoins)
	}
	return cfg, nil
}

// validateTuning checks raw against the embedded schema.
func validateTuning(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("tuning file is not valid JSON: %w", err)
	}

	var schemaDoc any
	if err := json.Unmarshal([]byte(tuningSchema), &schemaDoc); err != nil {
		return fmt.Errorf("parse tuning schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema://tuning.json", schemaDoc); err != nil {
		return fmt.Errorf("add tuning schema: %w", err)
	}
	compiled, err := c.Compile("schema://tuning.json")
	if err != nil {
		return fmt.Errorf("compile tuning schema: %w", err)
	}

	if err := compiled.Validate(parsed); err != nil {
		return fmt.Errorf("tuning file rejected: %w", err)
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", *src, err)
	}
	*dst = d
	return nil
}
