package middleware

import (
	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/config"
)

var profiler *pyroscope.Profiler

// InitProfiling starts Pyroscope continuous profiling. Argon2 hashing and the
// LISTEN connections held by profile screens are the hot spots, so CPU,
// allocations, goroutines and mutex contention are collected.
func InitProfiling(cfg *config.Config, logger *zap.Logger) error {
	info := detectServiceInfo(cfg.Profiling.ServiceName, cfg.Service.Version)

	var err error
	profiler, err = pyroscope.Start(pyroscope.Config{
		ApplicationName: info.Name,
		ServerAddress:   cfg.Profiling.Endpoint,
		Tags: map[string]string{
			"service":   info.Name,
			"namespace": info.Namespace,
			"version":   info.Version,
		},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
		},
		Logger: logger.Named("pyroscope").Sugar(),
	})
	return err
}

// StopProfiling stops Pyroscope profiling
func StopProfiling() {
	if profiler != nil {
		_ = profiler.Stop()
	}
}
