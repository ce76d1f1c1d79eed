package scheduler

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Enabled            bool   `envconfig:"COMPLETION_SCHEDULER_ENABLED" default:"true"`
	CompletionSchedule string `envconfig:"COMPLETION_SCHEDULE" default:"@every 5m"`
	Concurrency        int    `envconfig:"COMPLETION_CONCURRENCY" default:"4"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
