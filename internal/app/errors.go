package service

import (
	"errors"
	"fmt"

	"github.com/okian/topboard/internal/domain/ranking"
)

// Error constants.
var (
	// ErrNotStarted is returned by every ranking call before Start. It
	// matches ranking.ErrStoreUnavailable so callers treat it as an outage.
	ErrNotStarted = fmt.Errorf("%w: service not started", ranking.ErrStoreUnavailable)
	// ErrUnknownBackend rejects a store backend name Start cannot build.
	ErrUnknownBackend = errors.New("unknown store backend")
)
