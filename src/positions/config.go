package positions

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CostBasisMethod string `envconfig:"COST_BASIS_METHOD" default:"average"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
