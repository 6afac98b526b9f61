package mintqueue

import (
	"github.com/bridgelock/listener/config/types"
)

type Config struct {
	// DBPath path of the DB
	DBPath string `mapstructure:"DBPath"`
	// MaxAttempts is the number of times a mint is tried before the action
	// is marked as failed and handed over to manual remediation
	MaxAttempts int `mapstructure:"MaxAttempts"`
	// RetryBackoff is the base wait between attempts, doubled on every retry
	RetryBackoff types.Duration `mapstructure:"RetryBackoff"`
	// WaitOnEmptyQueue time that a worker sleeps when there is nothing to do
	WaitOnEmptyQueue types.Duration `mapstructure:"WaitOnEmptyQueue"`
	// Workers is the number of concurrent mint workers
	Workers int `mapstructure:"Workers"`
}
