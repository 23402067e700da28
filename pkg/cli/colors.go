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
Package cli holds the terminal helpers shared by the Aviary executables:
colors, status lines, key/value rows and CLI errors.

Colors are enabled only when stdout is a terminal and NO_COLOR is unset.
SetColorsEnabled overrides the detection.
*/
package cli

import (
	"os"
	"sync/atomic"

	"golang.org/x/term"
)

// ANSI escape codes.
const (
	Reset       = "\033[0m"
	Bold        = "\033[1m"
	Dim         = "\033[2m"
	Red         = "\033[31m"
	Green       = "\033[32m"
	Yellow      = "\033[33m"
	Cyan        = "\033[36m"
	BrightGreen = "\033[92m"
)

var colorsEnabled atomic.Bool

func init() {
	colorsEnabled.Store(detectColors())
}

func detectColors() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// SetColorsEnabled forces colors on or off.
func SetColorsEnabled(enabled bool) {
	colorsEnabled.Store(enabled)
}

// ColorsEnabled reports whether output is colored.
func ColorsEnabled() bool {
	return colorsEnabled.Load()
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func colorize(code, s string) string {
	if !colorsEnabled.Load() {
		return s
	}
	return code + s + Reset
}

// Highlight renders s in bold.
func Highlight(s string) string { return colorize(Bold, s) }

// Dimmed renders s faint.
func Dimmed(s string) string { return colorize(Dim, s) }

// Info renders s in cyan.
func Info(s string) string { return colorize(Cyan, s) }

// Success renders s in green.
func Success(s string) string { return colorize(Green, s) }

// Warning renders s in yellow.
func Warning(s string) string { return colorize(Yellow, s) }

// Error renders s in red.
func Error(s string) string { return colorize(Red, s) }
