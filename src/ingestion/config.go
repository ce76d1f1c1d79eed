package ingestion

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// run the completion engine after a batch
	AutoComplete bool `envconfig:"INGEST_AUTO_COMPLETE" default:"true"`
	// location of timestamps without offset
	Timezone     string `envconfig:"INGEST_TIMEZONE" default:"UTC"`
	MaxLineBytes int    `envconfig:"INGEST_MAX_LINE_BYTES" default:"1048576"`
	DataDir      string `envconfig:"INGEST_DATA_DIR" default:"."`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
