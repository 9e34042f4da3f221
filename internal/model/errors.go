package model

import "errors"

var (
	// ErrUnknownReport is returned for an unregistered report identifier.
	ErrUnknownReport = errors.New("unknown report")
	// ErrUnauthorized is returned when no caller identity is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRunNotFound is returned when a run is absent or owned by someone else.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotCompleted is returned when exporting a run that has not completed.
	ErrRunNotCompleted = errors.New("run not completed")
	// ErrRunFinalized is returned when writing a terminal state twice.
	ErrRunFinalized = errors.New("run already finalized")
	// ErrUpstreamQuery wraps ledger store failures.
	ErrUpstreamQuery = errors.New("upstream query failed")
	// ErrRender wraps spreadsheet and document serialization failures.
	ErrRender = errors.New("render failed")
)
