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

package server

import "fmt"

// State is the server's lifecycle position. It only ever moves forward.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateWorkersStopped
	StateFinalSave
	StateStopped
)

var stateNames = [...]string{
	StateRunning:        "running",
	StateDraining:       "draining",
	StateWorkersStopped: "workers_stopped",
	StateFinalSave:      "final_save",
	StateStopped:        "stopped",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int32(s))
}
