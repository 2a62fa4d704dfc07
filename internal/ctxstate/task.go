// Copyright 2024 Humanitec
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ctxstate

import (
	"bytes"
	"runtime"
	"strconv"
)

// Task is a logical task identity: two Tasks are equal iff they denote the
// same logical task. A goroutine is the default realization of one, but
// callers that run several logical tasks on one goroutine (a fiber
// scheduler, a worker-pool slot) can mint their own.
type Task uint64

// CurrentTask identifies the calling goroutine. Go deliberately does not
// expose a goroutine id through any public API, so — like the small
// per-goroutine binding caches used by some dependency-injection containers —
// it is recovered by parsing the id out of a runtime.Stack dump of the
// calling goroutine. This is not cheap enough for
// a hot loop; callers that already track their own logical task identity
// (a fiber scheduler, a worker-pool slot) should use CurrentFor/SetCurrentFor
// with an explicit Task instead of relying on this lookup on every access.
func CurrentTask() Task {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return Task(parseGoroutineID(buf[:n]))
}

// parseGoroutineID extracts the numeric id from a line of the form
// "goroutine 123 [running]:" as produced by runtime.Stack.
func parseGoroutineID(stack []byte) uint64 {
	const prefix = "goroutine "
	if !bytes.HasPrefix(stack, []byte(prefix)) {
		return 0
	}
	rest := stack[len(prefix):]
	end := bytes.IndexByte(rest, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(rest[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
