package agent

import "errors"

var (
	// ErrInvalidConfiguration is returned when the gateway cannot be built from its config
	ErrInvalidConfiguration = errors.New("invalid gateway configuration")

	// ErrAPICallFailed wraps any provider or transport failure
	ErrAPICallFailed = errors.New("API call to model failed")

	// ErrEmptyResponse is returned when the provider answers with no text
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrMalformedResponse is returned when a structured payload does not match its schema
	ErrMalformedResponse = errors.New("malformed structured response")
)
