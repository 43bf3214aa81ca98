// Package errors provides the structured error taxonomy of the indexing and
// search core.
//
// Errors are matched by code with errors.Is. Indexing and search failures
// are contained at the request or cycle boundary; nothing in the core
// propagates an error out to terminate the host process.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies errors for logging and boundary handling.
type Category string

const (
	// CategoryValidation marks malformed requests rejected at the boundary.
	CategoryValidation Category = "VALIDATION"
	// CategoryIndexing marks per-request indexing failures.
	CategoryIndexing Category = "INDEXING"
	// CategorySearch marks search failures surfaced as degraded responses.
	CategorySearch Category = "SEARCH"
	// CategoryPersistence marks queue store failures.
	CategoryPersistence Category = "PERSISTENCE"
)

// Error codes.
const (
	// Validation
	CodeInvalidRequest = "ERR_VALIDATION_INVALID_REQUEST"

	// Indexing
	CodeNullContent    = "ERR_INDEXING_NULL_CONTENT"
	CodeContentNotFile = "ERR_INDEXING_CONTENT_NOT_FILE"
	CodeIndexingIO     = "ERR_INDEXING_IO"

	// Search
	CodeNoIndex    = "ERR_SEARCH_NO_INDEX"
	CodeQueryParse = "ERR_SEARCH_QUERY_PARSE"
	CodeSearchIO   = "ERR_SEARCH_IO"

	// Persistence
	CodePersistence = "ERR_PERSISTENCE"
)

// Error is the structured error type. It carries a stable code for matching,
// a category for boundary policy, and the underlying cause for the chain.
type Error struct {
	Code     string
	Category Category
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code so errors.Is works against the sentinel constructors.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a structured error.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Wrap creates a structured error around a cause.
func Wrap(code string, category Category, message string, cause error) *Error {
	return &Error{Code: code, Category: category, Message: message, Cause: cause}
}

// Sentinel constructors for the core taxonomy.

// InvalidRequest rejects a malformed boundary request.
func InvalidRequest(message string) *Error {
	return New(CodeInvalidRequest, CategoryValidation, message)
}

// NullContent rejects an index request without content.
func NullContent() *Error {
	return New(CodeNullContent, CategoryIndexing, "content is null")
}

// ContentNotFile rejects an index request whose path is a directory.
func ContentNotFile(path string) *Error {
	return New(CodeContentNotFile, CategoryIndexing, "content must be a file, not a directory: "+path)
}

// IndexingIO wraps an I/O failure during extraction or index write.
func IndexingIO(cause error) *Error {
	return Wrap(CodeIndexingIO, CategoryIndexing, "indexing i/o failure", cause)
}

// NoIndex reports a missing shard directory.
func NoIndex(language string) *Error {
	return New(CodeNoIndex, CategorySearch, "no index for language "+language)
}

// QueryParse wraps a query parse failure.
func QueryParse(cause error) *Error {
	return Wrap(CodeQueryParse, CategorySearch, "query parse failure", cause)
}

// SearchIO wraps an I/O failure during search.
func SearchIO(cause error) *Error {
	return Wrap(CodeSearchIO, CategorySearch, "search i/o failure", cause)
}

// Persistence wraps a queue store failure.
func Persistence(cause error) *Error {
	return Wrap(CodePersistence, CategoryPersistence, "queue store failure", cause)
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
