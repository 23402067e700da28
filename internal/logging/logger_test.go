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

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T, level Level, jsonMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetGlobalOutput(&buf)
	SetGlobalLevel(level)
	SetJSONMode(jsonMode)
	t.Cleanup(func() {
		SetGlobalOutput(os.Stdout)
		SetGlobalLevel(INFO)
		SetJSONMode(false)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("Error"))
	assert.Equal(t, INFO, ParseLevel("nonsense"))
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, WARN, false)
	log := NewLogger("test")

	log.Info("hidden")
	log.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "[test]")
	assert.Contains(t, out, "k=1")
}

func TestTextFieldsAreSorted(t *testing.T) {
	buf := captureOutput(t, DEBUG, false)

	NewLogger("test").Info("msg", "zeta", 1, "alpha", 2)

	line := buf.String()
	assert.Less(t, strings.Index(line, "alpha=2"), strings.Index(line, "zeta=1"))
}

func TestJSONModeWithContext(t *testing.T) {
	buf := captureOutput(t, DEBUG, true)

	log := NewLogger("server").With("remote_addr", "127.0.0.1:1").With("worker", 3)
	log.Error("boom", "error", errors.New("disk full"))

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry.Level)
	assert.Equal(t, "server", entry.Component)
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, "127.0.0.1:1", entry.Fields["remote_addr"])
	assert.Equal(t, float64(3), entry.Fields["worker"])
	assert.Equal(t, "disk full", entry.Fields["error"])
}

func TestRequestContext(t *testing.T) {
	buf := captureOutput(t, DEBUG, true)

	rc := NewRequestContext("127.0.0.1:5000", "ADD_BIRD")
	assert.NotEmpty(t, rc.ID)
	assert.NotEqual(t, rc.ID, NewRequestContext("x", "y").ID)

	rc.LogComplete(NewLogger("server"), "ok")

	var entry Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Request completed", entry.Message)
	assert.Equal(t, "ADD_BIRD", entry.Fields["command"])
	assert.Equal(t, rc.ID, entry.Fields["transaction_id"])
}
