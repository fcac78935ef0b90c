package services

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type EngineSettings struct {
	ExpiredPollsSpec string        `mapstructure:"expired_polls" validate:"required"`
	DeadlinesSpec    string        `mapstructure:"deadlines" validate:"required"`
	ForceAfter       time.Duration `mapstructure:"force_after" validate:"gte=0"`

	GuardTimeout time.Duration `mapstructure:"guard_timeout" validate:"gt=0"`

	SelectionSize  int           `mapstructure:"selection_size" validate:"gte=2,lte=10"`
	SelectionHours int           `mapstructure:"selection_hours" validate:"gte=1,lte=167"`
	RatingDuration time.Duration `mapstructure:"rating_duration" validate:"gt=0"`

	AnswerCacheSize int `mapstructure:"answer_cache_size" validate:"gt=0"`
}

func DefaultSettings() EngineSettings {
	return EngineSettings{
		ExpiredPollsSpec: "@every 60s",
		DeadlinesSpec:    "@every 10m",
		ForceAfter:       time.Hour,
		GuardTimeout:     60 * time.Second,
		SelectionSize:    5,
		SelectionHours:   24,
		RatingDuration:   167 * time.Hour,
		AnswerCacheSize:  4096,
	}
}

var Settings = DefaultSettings()

// ReadSettings overlays the engine section of the config file on the defaults.
func ReadSettings() error {
	settings := DefaultSettings()
	if viper.IsSet("engine") {
		if err := viper.UnmarshalKey("engine", &settings); err != nil {
			return fmt.Errorf("unable to parse engine settings: %v", err)
		}
	}
	if err := validator.New().Struct(settings); err != nil {
		return fmt.Errorf("invalid engine settings: %v", err)
	}

	Settings = settings
	return nil
}
