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

package cli

import "fmt"

// ErrorCode classifies a command-line failure.
type ErrorCode int

const (
	ErrMissingArgument ErrorCode = iota + 1
	ErrInvalidArgument
	ErrInvalidCommand
	ErrConnectionFailed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrMissingArgument:
		return "missing argument"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrInvalidCommand:
		return "invalid command"
	case ErrConnectionFailed:
		return "connection failed"
	}
	return fmt.Sprintf("error(%d)", int(c))
}

// CLIError is a user-facing error with an optional hint.
type CLIError struct {
	Code    ErrorCode
	Message string
	Hint    string
}

// NewCLIError creates a CLIError.
func NewCLIError(code ErrorCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WithHint attaches a suggestion shown under the message.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

func (e *CLIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Print writes the error and its hint to the error stream.
func (e *CLIError) Print() {
	PrintError("%s", e.Error())
	if e.Hint != "" {
		fmt.Fprintf(ErrOutput, "   %s %s\n", Dimmed("Hint:"), e.Hint)
	}
}
