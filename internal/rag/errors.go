package rag

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass tags every engine failure with one member of a closed set so
// callers match on class, not on message text.
type ErrorClass string

const (
	// ClassEmptyQuery means answer_query was called with a blank query.
	ClassEmptyQuery ErrorClass = "empty_query"
	// ClassNoData means build_index was called with zero valid records.
	ClassNoData ErrorClass = "no_data"
	// ClassDimensionMismatch means a passages/vectors length mismatch or a
	// vector whose dimensionality differs from the index.
	ClassDimensionMismatch ErrorClass = "dimension_mismatch"
	// ClassEmbeddingQuota is a recoverable embedding failure: the engine
	// downgrades to the local backend and retries once.
	ClassEmbeddingQuota ErrorClass = "embedding_quota_exceeded"
	// ClassEmbeddingFatal is a non-recoverable embedding failure.
	ClassEmbeddingFatal ErrorClass = "embedding_fatal"
	// ClassGenerationQuota is a recoverable generation failure: the
	// synthesizer switches to deterministic fallback extraction.
	ClassGenerationQuota ErrorClass = "generation_quota_exceeded"
	// ClassGenerationFatal is a non-recoverable generation failure,
	// surfaced to the caller verbatim.
	ClassGenerationFatal ErrorClass = "generation_fatal"
)

// Error is the typed failure value used across the engine. It carries an
// explicit class so the orchestrator never has to inspect message strings
// to decide recoverability.
type Error struct {
	// Class identifies the failure in the closed taxonomy.
	Class ErrorClass
	// Msg is the human-readable description.
	Msg string
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a typed Error with the given class and message.
func NewError(class ErrorClass, msg string) *Error {
	return &Error{Class: class, Msg: msg}
}

// WrapError constructs a typed Error wrapping a cause.
func WrapError(class ErrorClass, msg string, err error) *Error {
	return &Error{Class: class, Msg: msg, Err: err}
}

// ClassOf returns the ErrorClass of err, or empty string if err carries no
// class tag anywhere in its chain.
func ClassOf(err error) ErrorClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// quotaIndicators is the conservative keyword set used to recognize
// quota/rate-limit failures from backends that only surface string errors.
// Typed classes always win; this matcher is a bridge for SDK errors with no
// structured code. Keep the set narrow: a false positive silently degrades
// answer quality.
var quotaIndicators = []string{
	"quota",
	"429",
	"resource_exhausted",
	"resource has been exhausted",
	"rate limit",
	"rate-limit",
}

// IsQuota reports whether err is a quota/rate-limit class failure, either
// by its typed class or, failing that, by conservative message matching.
func IsQuota(err error) bool {
	if err == nil {
		return false
	}
	switch ClassOf(err) {
	case ClassEmbeddingQuota, ClassGenerationQuota:
		return true
	case ClassEmbeddingFatal, ClassGenerationFatal:
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range quotaIndicators {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}
