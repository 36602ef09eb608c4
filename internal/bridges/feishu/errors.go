package feishu

import "errors"

var (
	// ErrNotConfigured is returned when the app id or secret is missing.
	ErrNotConfigured = errors.New("feishu: app id and app secret are required")

	// ErrEmptyResponse is returned when the SDK returns neither a response
	// nor an error.
	ErrEmptyResponse = errors.New("feishu: empty response")
)
