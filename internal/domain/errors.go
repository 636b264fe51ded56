package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRateLimited     = errors.New("rate limited")
	ErrAllVenuesFailed = errors.New("all venues failed")
	ErrCycleSuperseded = errors.New("refresh cycle superseded")
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	ErrMissingAPIKey   = errors.New("api key required")
)
