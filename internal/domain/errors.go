package domain

import "errors"

var (
	// ErrBlankTagName signals a blank or whitespace-only tag name.
	ErrBlankTagName = errors.New("tag name cannot be empty")
	// ErrTagNotFound signals a missing tag record.
	ErrTagNotFound = errors.New("tag not found")
	// ErrCaseNotFound signals a missing case.
	ErrCaseNotFound = errors.New("case not found")
	// ErrModelNotCached signals that the cache holds no usable model.
	// Deserialization failures surface as this, not as hard errors.
	ErrModelNotCached = errors.New("similarity model not cached")
	// ErrModelNotFitted signals a transform before Fit.
	ErrModelNotFitted = errors.New("vector space model not fitted")
)
