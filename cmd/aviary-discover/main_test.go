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

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aviary/internal/discovery"
	"aviary/pkg/cli"
)

var found = []*discovery.Server{
	{Instance: "lab-1", Addr: "192.168.1.10:3000", Backend: "xml", Workers: 2, Version: "1.0.0"},
	{Instance: "lab-2", Addr: "192.168.1.11:3000"},
}

func TestOutputQuiet(t *testing.T) {
	var buf bytes.Buffer
	outputQuiet(&buf, found)
	assert.Equal(t, "192.168.1.10:3000,192.168.1.11:3000\n", buf.String())
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, outputJSON(&buf, found))

	var got []discovery.Server
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "lab-1", got[0].Instance)
	assert.Equal(t, "xml", got[0].Backend)
}

func TestOutputHuman(t *testing.T) {
	cli.SetColorsEnabled(false)
	var buf bytes.Buffer
	outputHuman(&buf, found)
	out := buf.String()
	assert.Contains(t, out, "Found 2 Aviary server(s)")
	assert.Contains(t, out, "[1] lab-1")
	assert.Contains(t, out, "Address: 192.168.1.10:3000")
	assert.Contains(t, out, "Backend: xml")
}
