// Package metrics owns the process-wide Prometheus registry.
//
// Components take a prometheus.Registerer and accept nil to disable metrics
// with zero overhead:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	sessions := session.NewMetrics(metrics.GetRegistry())
//
//	// Without metrics
//	sessions := session.NewMetrics(nil)
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry creates the global registry with Go runtime and process
// collectors. Calling it again returns the existing registry.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
// The nil case is returned as an untyped nil Registerer so callers can pass
// it straight to constructors that treat nil as "disabled".
func GetRegistry() prometheus.Registerer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

// Gatherer returns the global registry for exposition, or nil when disabled.
func Gatherer() prometheus.Gatherer {
	mu.RLock()
	defer mu.RUnlock()
	if registry == nil {
		return nil
	}
	return registry
}

// Reset drops the global registry. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}

// RegisterOrReuse registers c with reg. If an equal collector is already
// registered it returns the existing one, so metrics keep being exported
// across server restarts within one process.
func RegisterOrReuse(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}
