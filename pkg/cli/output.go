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

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Output is where the Print helpers write. Errors go to ErrOutput.
var (
	Output    io.Writer = os.Stdout
	ErrOutput io.Writer = os.Stderr
)

// OutputFormat selects how results are printed.
type OutputFormat int

const (
	FormatTable OutputFormat = iota
	FormatJSON
	FormatPlain
)

func (f OutputFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatPlain:
		return "plain"
	default:
		return "table"
	}
}

// ParseOutputFormat parses "table", "json" or "plain".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "plain":
		return FormatPlain, nil
	}
	return FormatTable, NewCLIError(ErrInvalidArgument, fmt.Sprintf("unknown output format %q", s))
}

// Status icons.
func SuccessIcon() string { return Success("✓") }
func ErrorIcon() string   { return Error("✗") }
func WarningIcon() string { return Warning("!") }
func InfoIcon() string    { return Info("›") }

// PrintSuccess prints a success line.
func PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", SuccessIcon(), fmt.Sprintf(format, args...))
}

// PrintInfo prints an informational line.
func PrintInfo(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", InfoIcon(), fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning line to the error stream.
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(ErrOutput, "%s %s\n", WarningIcon(), fmt.Sprintf(format, args...))
}

// PrintError prints an error line to the error stream.
func PrintError(format string, args ...interface{}) {
	fmt.Fprintf(ErrOutput, "%s %s\n", ErrorIcon(), Error(fmt.Sprintf(format, args...)))
}

// KeyValue prints "key: value" with the key padded to width.
func KeyValue(key, value string, width int) {
	fmt.Fprintf(Output, "  %s %s\n", Dimmed(fmt.Sprintf("%-*s", width, key+":")), value)
}

// Separator returns a horizontal rule of the given width.
func Separator(width int) string {
	if width < 0 {
		width = 0
	}
	return Dimmed(strings.Repeat("─", width))
}
