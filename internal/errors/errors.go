/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package errors provides structured error handling for Aviary.

Every request outcome that is not a success is an *AviaryError carrying a
category and a numeric code. Handlers never panic on expected validation
outcomes; they return one of these values and the caller decides how to
surface it.

Error Categories:
  - INVALID_INPUT: empty or malformed request fields
  - DUPLICATE: a bird with the same name already exists
  - NOT_FOUND: the named bird is not in the table
  - IO: socket or storage failures
  - STARTUP: the server cannot bind or prepare its data directory

Only STARTUP errors are fatal to the process.
*/
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error identifier.
type ErrorCode int

const (
	// Invalid input errors (1000-1999)
	ErrCodeInvalidInput   ErrorCode = 1000
	ErrCodeEmptyName      ErrorCode = 1001
	ErrCodeInvalidPattern ErrorCode = 1002
	ErrCodeInvalidRequest ErrorCode = 1003

	// Duplicate errors (2000-2999)
	ErrCodeDuplicate  ErrorCode = 2000
	ErrCodeBirdExists ErrorCode = 2001

	// Not found errors (3000-3999)
	ErrCodeNotFound     ErrorCode = 3000
	ErrCodeBirdNotFound ErrorCode = 3001

	// IO errors (4000-4999)
	ErrCodeIO          ErrorCode = 4000
	ErrCodeProtocol    ErrorCode = 4001
	ErrCodeStorage     ErrorCode = 4002
	ErrCodeUnavailable ErrorCode = 4003

	// Startup errors (5000-5999)
	ErrCodeStartup       ErrorCode = 5000
	ErrCodeBindFailed    ErrorCode = 5001
	ErrCodeDataDir       ErrorCode = 5002
	ErrCodeConfigInvalid ErrorCode = 5003
)

// Category represents the error category.
type Category string

const (
	CategoryInvalidInput Category = "INVALID_INPUT"
	CategoryDuplicate    Category = "DUPLICATE"
	CategoryNotFound     Category = "NOT_FOUND"
	CategoryIO           Category = "IO"
	CategoryStartup      Category = "STARTUP"
)

// Kind is the short status name carried on the wire.
type Kind string

const (
	KindOK           Kind = "ok"
	KindInvalidInput Kind = "invalid_input"
	KindDuplicate    Kind = "duplicate"
	KindNotFound     Kind = "not_found"
	KindIOFailure    Kind = "io_failure"
)

// AviaryError represents a structured error in Aviary.
type AviaryError struct {
	Code     ErrorCode
	Category Category
	Message  string
	Detail   string
	Hint     string
	Cause    error
}

// Error implements the error interface.
func (e *AviaryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("ERROR %d (%s): %s - %s", e.Code, e.Category, e.Message, e.Detail)
	}
	return fmt.Sprintf("ERROR %d (%s): %s", e.Code, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AviaryError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message.
func (e *AviaryError) UserMessage() string {
	msg := fmt.Sprintf("ERROR: %s", e.Message)
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	if e.Hint != "" {
		msg += fmt.Sprintf("\nHINT: %s", e.Hint)
	}
	return msg
}

// WithDetail adds detail to the error.
func (e *AviaryError) WithDetail(detail string) *AviaryError {
	e.Detail = detail
	return e
}

// WithHint adds a hint to the error.
func (e *AviaryError) WithHint(hint string) *AviaryError {
	e.Hint = hint
	return e
}

// WithCause adds a cause to the error.
func (e *AviaryError) WithCause(cause error) *AviaryError {
	e.Cause = cause
	return e
}

// ============================================================================
// Invalid Input Constructors
// ============================================================================

// NewInvalidInput creates a new invalid input error.
func NewInvalidInput(message string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeInvalidInput,
		Category: CategoryInvalidInput,
		Message:  message,
	}
}

// EmptyName is returned when a request omits the bird name.
func EmptyName() *AviaryError {
	return &AviaryError{
		Code:     ErrCodeEmptyName,
		Category: CategoryInvalidInput,
		Message:  "Bird name can not be empty.",
	}
}

// InvalidPattern is returned when a sighting name pattern does not compile.
func InvalidPattern(pattern string, cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeInvalidPattern,
		Category: CategoryInvalidInput,
		Message:  fmt.Sprintf("Invalid bird name pattern '%s'.", pattern),
		Cause:    cause,
	}
}

// InvalidRequest is returned for unknown or undecodable request types.
func InvalidRequest(detail string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeInvalidRequest,
		Category: CategoryInvalidInput,
		Message:  "Invalid request.",
		Detail:   detail,
	}
}

// ============================================================================
// Duplicate Constructors
// ============================================================================

// BirdExists is returned when adding a bird whose name is taken.
func BirdExists(name string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeBirdExists,
		Category: CategoryDuplicate,
		Message:  fmt.Sprintf("Bird '%s' is already present.", name),
	}
}

// ============================================================================
// Not Found Constructors
// ============================================================================

// BirdNotFound is returned when a sighting names an unknown bird.
func BirdNotFound(name string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeBirdNotFound,
		Category: CategoryNotFound,
		Message:  fmt.Sprintf("Bird '%s' is not present.", name),
	}
}

// RemoveNotFound is returned when removing an unknown bird.
func RemoveNotFound(name string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeBirdNotFound,
		Category: CategoryNotFound,
		Message:  fmt.Sprintf("Unable to remove. %s is not present.", name),
	}
}

// ============================================================================
// IO Constructors
// ============================================================================

// IOFailure wraps a socket or storage error.
func IOFailure(op string, cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeIO,
		Category: CategoryIO,
		Message:  fmt.Sprintf("%s failed", op),
		Cause:    cause,
	}
}

// ProtocolError creates an error for malformed frames.
func ProtocolError(detail string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeProtocol,
		Category: CategoryIO,
		Message:  "protocol error",
		Detail:   detail,
	}
}

// StorageFailure wraps a persistence backend error.
func StorageFailure(backend string, cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeStorage,
		Category: CategoryIO,
		Message:  fmt.Sprintf("%s storage failure", backend),
		Cause:    cause,
	}
}

// Unavailable is returned when the server refuses work because it is stopping.
func Unavailable(message string) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeUnavailable,
		Category: CategoryIO,
		Message:  message,
	}
}

// ============================================================================
// Startup Constructors
// ============================================================================

// BindFailed is returned when the listening socket cannot be created.
func BindFailed(addr string, cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeBindFailed,
		Category: CategoryStartup,
		Message:  fmt.Sprintf("unable to listen on %s", addr),
		Hint:     "Check that the port is free or choose another with -port",
		Cause:    cause,
	}
}

// DataDirFailed is returned when the data directory cannot be prepared.
func DataDirFailed(dir string, cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeDataDir,
		Category: CategoryStartup,
		Message:  fmt.Sprintf("unable to prepare data directory %s", dir),
		Cause:    cause,
	}
}

// ConfigInvalid is returned when the configuration fails validation.
func ConfigInvalid(cause error) *AviaryError {
	return &AviaryError{
		Code:     ErrCodeConfigInvalid,
		Category: CategoryStartup,
		Message:  "invalid configuration",
		Cause:    cause,
	}
}

// ============================================================================
// Helper Functions
// ============================================================================

func categoryOf(err error) (Category, bool) {
	var e *AviaryError
	if stderrors.As(err, &e) {
		return e.Category, true
	}
	return "", false
}

// IsInvalidInput checks if an error is an invalid input error.
func IsInvalidInput(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryInvalidInput
}

// IsDuplicate checks if an error is a duplicate error.
func IsDuplicate(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryDuplicate
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryNotFound
}

// IsIOFailure checks if an error is an IO error.
func IsIOFailure(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryIO
}

// IsStartupFailure checks if an error is a startup error.
func IsStartupFailure(err error) bool {
	c, ok := categoryOf(err)
	return ok && c == CategoryStartup
}

// KindOf maps an error to the status kind sent to clients.
// A nil error is KindOK; anything unclassified is an IO failure.
func KindOf(err error) Kind {
	if err == nil {
		return KindOK
	}
	c, _ := categoryOf(err)
	switch c {
	case CategoryInvalidInput:
		return KindInvalidInput
	case CategoryDuplicate:
		return KindDuplicate
	case CategoryNotFound:
		return KindNotFound
	default:
		return KindIOFailure
	}
}

// FromKind rebuilds an error from a status kind and message received
// over the wire. KindOK yields nil.
func FromKind(kind Kind, message string) error {
	switch kind {
	case KindOK:
		return nil
	case KindInvalidInput:
		return NewInvalidInput(message)
	case KindDuplicate:
		return &AviaryError{Code: ErrCodeDuplicate, Category: CategoryDuplicate, Message: message}
	case KindNotFound:
		return &AviaryError{Code: ErrCodeNotFound, Category: CategoryNotFound, Message: message}
	default:
		return &AviaryError{Code: ErrCodeIO, Category: CategoryIO, Message: message}
	}
}

// GetCode returns the error code if it's an AviaryError, or 0 otherwise.
func GetCode(err error) ErrorCode {
	var e *AviaryError
	if stderrors.As(err, &e) {
		return e.Code
	}
	return 0
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	var e *AviaryError
	if stderrors.As(err, &e) {
		return e.UserMessage()
	}
	return fmt.Sprintf("ERROR: %v", err)
}
