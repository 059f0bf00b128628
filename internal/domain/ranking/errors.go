package ranking

import (
	"errors"

	"github.com/okian/topboard/internal/domain/entry"
)

// Sentinel error kinds. Callers match them with errors.Is.
var (
	// ErrInvalidInput reports a missing or non-numeric field; nothing was written.
	ErrInvalidInput = entry.ErrInvalidInput
	// ErrStoreUnavailable reports a connection, credential or HTTP-level failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrStoreProtocol reports an unexpected or unparsable store reply.
	ErrStoreProtocol = errors.New("store protocol error")
	// ErrNotAuthorized rejects a privileged call without a valid credential.
	ErrNotAuthorized = errors.New("not authorized")
)

// IsStoreError reports whether err came from the backing store.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrStoreProtocol)
}
