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

// Package ctxerr holds the protocol-violation error kinds the engine raises.
// They live in their own package so ctxframe, ctxstate, ctxguard, and the
// user-facing setting/service packages can all construct and match them
// without creating an import cycle.
package ctxerr

import "fmt"

// Namer is satisfied by any key type that can describe itself for an error
// message. ctxkey.Key implements it; kept minimal so this package never
// needs to import ctxkey.
type Namer interface {
	Name() string
}

// InputConflict is raised when a write violates the write-once-per-frame
// discipline: either the key was already frozen in this frame, or it
// already holds a different input value.
type InputConflict struct {
	Key       Namer
	Existing  any
	Attempted any
	Frozen    bool
}

func (e *InputConflict) Error() string {
	if e.Frozen {
		return fmt.Sprintf("ctxcore: input conflict for %q: already read as %v, cannot write %v", e.Key.Name(), e.Existing, e.Attempted)
	}
	return fmt.Sprintf("ctxcore: input conflict for %q: already bound to %v, cannot write %v", e.Key.Name(), e.Existing, e.Attempted)
}

// DynamicRuleError covers replacement cycles and illegal cross-task state
// operations — protocol violations that are not simple write conflicts.
type DynamicRuleError struct {
	Key    Namer
	Reason string
}

func (e *DynamicRuleError) Error() string {
	if e.Key != nil {
		return fmt.Sprintf("ctxcore: dynamic rule violation for %q: %s", e.Key.Name(), e.Reason)
	}
	return fmt.Sprintf("ctxcore: dynamic rule violation: %s", e.Reason)
}

// MissingBinding indicates a read of a key with no default and no
// frame-provided input. This signals a declaration bug, not a protocol
// violation, and is never retried by the core.
type MissingBinding struct {
	Key Namer
}

func (e *MissingBinding) Error() string {
	return fmt.Sprintf("ctxcore: no binding and no default for %q", e.Key.Name())
}
