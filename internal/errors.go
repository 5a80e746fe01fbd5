package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different types of errors
type ErrorType int

const (
	ErrNotFound ErrorType = iota
	ErrEmptyResult
	ErrTransientFetch
	ErrAccessDenied
	ErrRetriesExhausted
	ErrStructuralDecoding
	ErrEncoding
	ErrInvalidInput
	ErrFilesystem
)

// ErrorSeverity represents the severity of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// CrawlError describes a failure while resolving or fetching media
type CrawlError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Type       ErrorType              `json:"type"`
	Severity   ErrorSeverity          `json:"severity"`
	URL        string                 `json:"url,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Err        error                  `json:"-"`
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	var parts []string

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("crawl error (code: %d, type: %s)", e.Code, e.Type.String()))
	} else {
		parts = append(parts, fmt.Sprintf("crawl error (type: %s)", e.Type.String()))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, " - ")
}

// Unwrap returns the underlying cause
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// DetailedError returns a detailed error message with all available information
func (e *CrawlError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s] %s Error", e.Severity.String(), e.Type.String()))

	if e.Code != 0 {
		parts = append(parts, fmt.Sprintf("Code: %d", e.Code))
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message: %s", e.Message))
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("Cause: %v", e.Err))
	}

	// URLs carry device parameters, keep only the path
	if e.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s", redactSensitiveURL(e.URL)))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrNotFound:
		return "NotFound"
	case ErrEmptyResult:
		return "EmptyResult"
	case ErrTransientFetch:
		return "TransientFetch"
	case ErrAccessDenied:
		return "AccessDenied"
	case ErrRetriesExhausted:
		return "RetriesExhausted"
	case ErrStructuralDecoding:
		return "StructuralDecoding"
	case ErrEncoding:
		return "Encoding"
	case ErrInvalidInput:
		return "InvalidInput"
	case ErrFilesystem:
		return "Filesystem"
	default:
		return "Unknown"
	}
}

// String returns the string representation of ErrorSeverity
func (es ErrorSeverity) String() string {
	switch es {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// NewCrawlError creates a new CrawlError with default severity and suggestion
func NewCrawlError(code int, message string, errorType ErrorType) *CrawlError {
	return &CrawlError{
		Code:       code,
		Message:    message,
		Type:       errorType,
		Severity:   getDefaultSeverity(errorType),
		Suggestion: getDefaultSuggestion(errorType),
		Context:    make(map[string]interface{}),
	}
}

// WithSuggestion adds a custom suggestion to the error
func (e *CrawlError) WithSuggestion(suggestion string) *CrawlError {
	e.Suggestion = suggestion
	return e
}

// WithURL adds URL context to the error (query is redacted in logs)
func (e *CrawlError) WithURL(url string) *CrawlError {
	e.URL = url
	return e
}

// WithCause attaches the underlying error
func (e *CrawlError) WithCause(err error) *CrawlError {
	e.Err = err
	return e
}

// WithContext adds context information to the error
func (e *CrawlError) WithContext(key string, value interface{}) *CrawlError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the same request may succeed when repeated
func (e *CrawlError) IsRetryable() bool {
	switch e.Type {
	case ErrTransientFetch, ErrEncoding:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a CrawlError that may succeed on retry.
// Errors of unknown shape are treated as transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.IsRetryable()
	}
	return true
}

// IsErrorType reports whether err is a CrawlError of the given type
func IsErrorType(err error, errorType ErrorType) bool {
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Type == errorType
	}
	return false
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field      string                 `json:"field"`
	Message    string                 `json:"message"`
	Value      interface{}            `json:"value,omitempty"`
	Suggestion string                 `json:"suggestion,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := []string{fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("Suggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, " - ")
}

// DetailedError returns a detailed validation error message
func (e *ValidationError) DetailedError() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Validation Error for field '%s'", e.Field))
	parts = append(parts, fmt.Sprintf("Message: %s", e.Message))

	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("Provided value: %v", e.Value))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Context: %s", strings.Join(contextParts, ", ")))
	}

	if e.Suggestion != "" {
		parts = append(parts, fmt.Sprintf("\nSuggestion: %s", e.Suggestion))
	}

	return strings.Join(parts, "\n")
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewValidationErrorWithValue creates a ValidationError with the invalid value
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Context: make(map[string]interface{}),
	}
}

// WithSuggestion adds a suggestion to the validation error
func (e *ValidationError) WithSuggestion(suggestion string) *ValidationError {
	e.Suggestion = suggestion
	return e
}

// WithContext adds context to the validation error
func (e *ValidationError) WithContext(key string, value interface{}) *ValidationError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func getDefaultSuggestion(errorType ErrorType) string {
	switch errorType {
	case ErrNotFound:
		return "Check the spelling of the account number or collection name"
	case ErrEmptyResult:
		return "The account or collection exists but has no public videos"
	case ErrTransientFetch:
		return "Check your internet connection. Consider using --proxy if the provider is unreachable"
	case ErrAccessDenied:
		return "The provider refused this resource. Try again later or from another network"
	case ErrRetriesExhausted:
		return "Run again later; already downloaded files are skipped"
	case ErrStructuralDecoding:
		return "The listing API response changed shape. Results up to this page were kept"
	case ErrEncoding:
		return "The provider returned an undecodable response. The request will be repeated"
	case ErrInvalidInput:
		return "Separate identifiers with commas, spaces or new lines; prefix collections with #"
	case ErrFilesystem:
		return "Check permissions and free space in the output directory"
	default:
		return "Please check the error details and try again"
	}
}

func getDefaultSeverity(errorType ErrorType) ErrorSeverity {
	switch errorType {
	case ErrNotFound, ErrEmptyResult:
		return SeverityInfo
	case ErrTransientFetch, ErrEncoding, ErrStructuralDecoding:
		return SeverityWarning
	case ErrFilesystem:
		return SeverityCritical
	default:
		return SeverityError
	}
}

// redactSensitiveURL drops the query string, which carries device parameters
func redactSensitiveURL(url string) string {
	if idx := strings.Index(url, "?"); idx >= 0 {
		return url[:idx] + "?[REDACTED]"
	}
	return url
}

// NewNotFoundError creates an error for identifiers the provider does not know
func NewNotFoundError(id Identifier) *CrawlError {
	return NewCrawlError(404, fmt.Sprintf("%s %s does not exist", id.Kind, id), ErrNotFound).
		WithContext("identifier", id.Raw)
}

// NewEmptyResultError creates an error for identifiers with no media
func NewEmptyResultError(id Identifier) *CrawlError {
	return NewCrawlError(0, fmt.Sprintf("there's no video in %s %s", id.Kind, id), ErrEmptyResult).
		WithContext("identifier", id.Raw)
}

// NewAccessDeniedError creates an error for an explicit access-denied response
func NewAccessDeniedError(url string) *CrawlError {
	return NewCrawlError(403, "Access denied", ErrAccessDenied).WithURL(url)
}

// NewTransientError creates an error for a failure that may succeed when retried
func NewTransientError(code int, message string, cause error) *CrawlError {
	return NewCrawlError(code, message, ErrTransientFetch).WithCause(cause)
}

// NewRetriesExhaustedError creates an error for a fetch that ran out of attempts
func NewRetriesExhaustedError(url string, attempts int, last error) *CrawlError {
	return NewCrawlError(0, fmt.Sprintf("failed after %d attempts", attempts), ErrRetriesExhausted).
		WithURL(url).
		WithCause(last).
		WithContext("attempts", attempts)
}

// NewEncodingError creates an error for a response that cannot be decoded
func NewEncodingError(url string, cause error) *CrawlError {
	return NewCrawlError(0, "cannot decode response data", ErrEncoding).
		WithURL(url).
		WithCause(cause)
}

// NewStructuralDecodingError creates an error for a listing entry missing its reference
func NewStructuralDecodingError(field string, index int) *CrawlError {
	return NewCrawlError(0, fmt.Sprintf("entry %d has no %s field", index, field), ErrStructuralDecoding).
		WithContext("field", field).
		WithContext("entry", index)
}
