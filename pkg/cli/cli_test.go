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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	prevOut, prevErr, prevColors := Output, ErrOutput, ColorsEnabled()
	Output, ErrOutput = out, errOut
	t.Cleanup(func() {
		Output, ErrOutput = prevOut, prevErr
		SetColorsEnabled(prevColors)
	})
	return out, errOut
}

func TestColorsToggle(t *testing.T) {
	capture(t)
	SetColorsEnabled(false)
	assert.Equal(t, "x", Highlight("x"))

	SetColorsEnabled(true)
	assert.Equal(t, Bold+"x"+Reset, Highlight("x"))
	assert.Equal(t, Red+"x"+Reset, Error("x"))
}

func TestPrintHelpers(t *testing.T) {
	out, errOut := capture(t)
	SetColorsEnabled(false)

	PrintSuccess("saved %d", 3)
	KeyValue("Port", "3000", 6)
	PrintError("boom")

	assert.Equal(t, "✓ saved 3\n  Port:  3000\n", out.String())
	assert.Equal(t, "✗ boom\n", errOut.String())
}

func TestParseOutputFormat(t *testing.T) {
	f, err := ParseOutputFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseOutputFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatTable, f)

	_, err = ParseOutputFormat("yaml")
	var cliErr *CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, ErrInvalidArgument, cliErr.Code)
}

func TestCLIErrorPrint(t *testing.T) {
	_, errOut := capture(t)
	SetColorsEnabled(false)

	NewCLIError(ErrMissingArgument, "-name is required").WithHint("pass -name Robin").Print()
	assert.Equal(t, "✗ missing argument: -name is required\n   Hint: pass -name Robin\n", errOut.String())
}
