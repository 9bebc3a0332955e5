package domain

import "errors"

var (
	ErrNotFound        = errors.New("steam: not found")
	ErrUnauthorized    = errors.New("steam: unauthorized")
	ErrForbidden       = errors.New("steam: forbidden")
	ErrRateLimited     = errors.New("steam: rate limited")
	ErrInvalidOptions  = errors.New("invalid fetch options")
	ErrFeedClosed      = errors.New("feed closed")
	ErrSessionNotFound = errors.New("session not found")
)
