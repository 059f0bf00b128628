package api

import (
	"errors"

	"github.com/okian/topboard/internal/domain/ranking"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrRateLimited  = errors.New("too many submissions")
	ErrUnauthorized = ranking.ErrNotAuthorized
)
