package directory

import (
	"fmt"
	"strings"
)

// Config selects and tunes the directory backend.
type Config struct {
	// Type is the backend: "memory" or "badger".
	Type string `mapstructure:"type" validate:"required,oneof=memory badger" yaml:"type"`

	// Badger holds BadgerDB options, used when Type is "badger".
	Badger BadgerConfig `mapstructure:"badger" yaml:"badger"`
}

// New creates the backend named by cfg.Type, wrapped with tracing spans.
func New(cfg Config) (Directory, error) {
	var (
		dir Directory
		err error
	)

	switch strings.ToLower(cfg.Type) {
	case BackendMemory, "":
		dir = NewMemoryDirectory()
	case BackendBadger:
		dir, err = NewBadgerDirectory(cfg.Badger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Type)
	}

	return WithTracing(dir, backendName(cfg.Type)), nil
}

func backendName(t string) string {
	if t == "" {
		return BackendMemory
	}
	return strings.ToLower(t)
}
