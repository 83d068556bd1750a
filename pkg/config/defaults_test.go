package config

import (
	"testing"
	"time"

	"github.com/marmos91/peertrack/pkg/directory"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_NormalizesLogLevel(t *testing.T) {
	cfg := &Config{Logging: LoggingConfig{Level: "debug"}}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
}

func TestApplyDefaults_Server(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.Address != "0.0.0.0" {
		t.Errorf("Expected default address '0.0.0.0', got %q", cfg.Server.Address)
	}
	if cfg.Server.Port != DefaultTrackerPort {
		t.Errorf("Expected default port %d, got %d", DefaultTrackerPort, cfg.Server.Port)
	}
	if cfg.Server.PacketMaxSize != 128 {
		t.Errorf("Expected default packet size 128, got %d", cfg.Server.PacketMaxSize)
	}
	if cfg.Server.MaxFilesPerMessage != 0 || cfg.Server.MaxPeersPerMessage != 0 {
		t.Error("Expected chunk limits to stay derived (zero)")
	}
	if cfg.Server.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.Server.IdleTimeout)
	}
	if cfg.Server.SweepInterval != 5*time.Second {
		t.Errorf("Expected default sweep interval 5s, got %v", cfg.Server.SweepInterval)
	}
	if cfg.Server.PollInterval != time.Second {
		t.Errorf("Expected default poll interval 1s, got %v", cfg.Server.PollInterval)
	}
}

func TestApplyDefaults_API(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.API.Port != 9090 {
		t.Errorf("Expected default API port 9090, got %d", cfg.API.Port)
	}
	if cfg.API.ReadTimeout != 10*time.Second {
		t.Errorf("Expected default read timeout 10s, got %v", cfg.API.ReadTimeout)
	}
	if cfg.API.WriteTimeout != 10*time.Second {
		t.Errorf("Expected default write timeout 10s, got %v", cfg.API.WriteTimeout)
	}
	if cfg.API.IdleTimeout != 60*time.Second {
		t.Errorf("Expected default idle timeout 60s, got %v", cfg.API.IdleTimeout)
	}
}

func TestApplyDefaults_Directory(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Directory.Type != directory.BackendMemory {
		t.Errorf("Expected default directory 'memory', got %q", cfg.Directory.Type)
	}
	if cfg.Directory.Badger.MemTableSize != 0 {
		t.Error("Expected badger options untouched for the memory backend")
	}

	cfg = &Config{Directory: directory.Config{Type: "Badger"}}
	ApplyDefaults(cfg)
	if cfg.Directory.Type != directory.BackendBadger {
		t.Errorf("Expected type normalized to 'badger', got %q", cfg.Directory.Type)
	}
	if cfg.Directory.Badger.MemTableSize != DefaultBadgerMemTable {
		t.Errorf("Expected mem table %v, got %v", DefaultBadgerMemTable, cfg.Directory.Badger.MemTableSize)
	}
}

func TestApplyDefaults_Telemetry(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default endpoint 'localhost:4317', got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if len(cfg.Telemetry.Profiling.ProfileTypes) == 0 {
		t.Error("Expected default profile types")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "stderr",
		},
		ShutdownTimeout: 10 * time.Second,
		Server: ServerConfig{
			Port:          6969,
			PacketMaxSize: 512,
			IdleTimeout:   time.Minute * 5,
		},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected explicit level 'DEBUG' to be preserved, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit format 'json' to be preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected explicit output 'stderr' to be preserved, got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected explicit timeout 10s to be preserved, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Server.Port != 6969 || cfg.Server.PacketMaxSize != 512 {
		t.Errorf("Expected explicit server values preserved, got %+v", cfg.Server)
	}
	if cfg.Server.IdleTimeout != 5*time.Minute {
		t.Errorf("Expected explicit idle timeout preserved, got %v", cfg.Server.IdleTimeout)
	}
}
