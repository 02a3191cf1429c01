package codolio

import "errors"

var (
	ErrTimeout         = errors.New("codolio: timed out loading profile page")
	ErrLandmarkMissing = errors.New("codolio: profile page never rendered")
	ErrNotFound        = errors.New("codolio: profile not found")
	ErrRateLimited     = errors.New("codolio: rate limited")
	ErrBrowserNotReady = errors.New("codolio: browser not available")
	ErrInvalidUsername = errors.New("codolio: username is required")
)
