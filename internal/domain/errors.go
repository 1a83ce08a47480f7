package domain

import "errors"

var (
	// ErrAborted signals a request superseded by a newer one. Callers treat
	// it as "stale, discard", never as a failure.
	ErrAborted = errors.New("request aborted")
	// ErrUpstream signals a failed call to the upstream inventory service.
	ErrUpstream = errors.New("upstream request failed")
	// ErrNoTranscriber signals that voice capture is not configured.
	ErrNoTranscriber = errors.New("no transcriber configured")
)
