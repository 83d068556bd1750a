package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/peertrack/internal/bytesize"
	"github.com/marmos91/peertrack/internal/protocol/tracker/wire"
	"github.com/marmos91/peertrack/internal/telemetry"
	"github.com/marmos91/peertrack/pkg/api"
	"github.com/marmos91/peertrack/pkg/directory"
)

// Default values.
const (
	DefaultTrackerPort     = 9001
	DefaultShutdownTimeout = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultSweepInterval   = 5 * time.Second
	DefaultPollInterval    = time.Second
	DefaultBadgerMemTable  = 64 * bytesize.MiB
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values (0, "", nil) are replaced with defaults; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyServerDefaults(&cfg.Server)
	applyDirectoryDefaults(&cfg.Directory)
	cfg.API.ApplyDefaults()
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	def := telemetry.DefaultConfig()

	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = def.SampleRate
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	def := telemetry.DefaultProfilingConfig()

	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = def.ProfileTypes
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// applyServerDefaults sets tracker defaults. Chunk limits stay zero so the
// engine derives them from the packet size.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Address == "" {
		cfg.Address = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultTrackerPort
	}
	if cfg.PacketMaxSize == 0 {
		cfg.PacketMaxSize = wire.DefaultPacketMaxSize
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
}

func applyDirectoryDefaults(cfg *directory.Config) {
	if cfg.Type == "" {
		cfg.Type = directory.BackendMemory
	}
	cfg.Type = strings.ToLower(cfg.Type)

	if cfg.Type == directory.BackendBadger && cfg.Badger.MemTableSize == 0 {
		cfg.Badger.MemTableSize = DefaultBadgerMemTable
	}
}

// setViperDefaults registers every scalar key so PEERTRACK_* environment
// variables apply even when no configuration file exists.
func setViperDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)

	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.endpoint", d.Telemetry.Endpoint)
	v.SetDefault("telemetry.insecure", d.Telemetry.Insecure)
	v.SetDefault("telemetry.sample_rate", d.Telemetry.SampleRate)
	v.SetDefault("telemetry.profiling.enabled", d.Telemetry.Profiling.Enabled)
	v.SetDefault("telemetry.profiling.endpoint", d.Telemetry.Profiling.Endpoint)

	v.SetDefault("shutdown_timeout", d.ShutdownTimeout.String())

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.packet_max_size", d.Server.PacketMaxSize)
	v.SetDefault("server.max_files_per_message", d.Server.MaxFilesPerMessage)
	v.SetDefault("server.max_peers_per_message", d.Server.MaxPeersPerMessage)
	v.SetDefault("server.idle_timeout", d.Server.IdleTimeout.String())
	v.SetDefault("server.sweep_interval", d.Server.SweepInterval.String())
	v.SetDefault("server.poll_interval", d.Server.PollInterval.String())

	v.SetDefault("directory.type", d.Directory.Type)
	v.SetDefault("directory.badger.mem_table_size", uint64(DefaultBadgerMemTable))
	v.SetDefault("directory.badger.block_cache_size", 0)

	v.SetDefault("catalog.path", "")
	v.SetDefault("catalog.watch", d.Catalog.Watch)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.address", d.API.Address)
	v.SetDefault("api.port", d.API.Port)
	v.SetDefault("api.read_timeout", d.API.ReadTimeout.String())
	v.SetDefault("api.write_timeout", d.API.WriteTimeout.String())
	v.SetDefault("api.idle_timeout", d.API.IdleTimeout.String())
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	apiEnabled := true
	cfg := &Config{
		Telemetry: TelemetryConfig{Insecure: true},
		Metrics:   MetricsConfig{Enabled: true},
		API:       api.APIConfig{Enabled: &apiEnabled},
	}

	ApplyDefaults(cfg)
	return cfg
}
