package domain

import "errors"

// Error taxonomy for the ingestion pipeline. Errors local to one entity,
// page or AI call are absorbed with fallbacks and never appear here;
// these sentinels cover per-file outcomes.
var (
	// ErrFormat indicates the input could not be parsed as the expected
	// exchange format. Recoverable by attempting conversion.
	ErrFormat = errors.New("unrecognized exchange format")

	// ErrConversionUnavailable indicates no converter tool was found.
	// Permanent for the process lifetime.
	ErrConversionUnavailable = errors.New("format converter unavailable")

	// ErrConversionTimeout indicates the converter exceeded its deadline.
	ErrConversionTimeout = errors.New("format conversion timed out")

	// ErrConversionFailed indicates the converter ran but produced no
	// output artifact.
	ErrConversionFailed = errors.New("format conversion failed")

	// ErrAIUnavailable indicates no AI capability is configured.
	ErrAIUnavailable = errors.New("ai capability unavailable")

	// ErrStorage indicates persistence failed for a file.
	ErrStorage = errors.New("storage error")

	// ErrNotFound indicates a record is absent from storage.
	ErrNotFound = errors.New("record not found")
)
