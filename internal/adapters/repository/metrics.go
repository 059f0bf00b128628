package repository

import (
	"errors"
	"time"

	"github.com/okian/topboard/internal/domain/ranking"
	"github.com/okian/topboard/pkg/metrics"
)

// Backend names used in errors and metrics labels.
const (
	backendMemory = "memory"
	backendREST   = "rest"
	backendRedis  = "redis"
)

// observe records one store command.
func observe(backend, cmd string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ranking.ErrStoreProtocol):
		status = "protocol_error"
	default:
		status = "unavailable"
	}
	metrics.RecordStoreCommand(backend, cmd, status, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordErrorByComponent("store", status)
	}
}
