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

import "sync"

// registry is the mapping from logical task identity to that task's active
// State. Entries are per-task keys, so a
// sync.Map is enough to make reads/writes atomic with respect to task
// identity without a single global mutex serializing unrelated tasks.
var registry sync.Map // map[Task]*State

// Current returns the calling goroutine's current State, creating a fresh
// single-frame root State on first use.
func Current() *State {
	return CurrentFor(CurrentTask())
}

// CurrentFor returns task's current State, creating a fresh single-frame
// root State on first use.
func CurrentFor(task Task) *State {
	if s, ok := registry.Load(task); ok {
		return s.(*State)
	}
	fresh := NewRoot()
	actual, _ := registry.LoadOrStore(task, fresh)
	return actual.(*State)
}

// SetCurrentFor installs s as task's current State and returns whatever was
// previously current for that task (creating the lazy root state first if
// task had never been seen, so the return value is never nil). It fails
// with *ctxerr.DynamicRuleError if s is presently locked to a different
// task by an open scope guard.
func SetCurrentFor(task Task, s *State) (previous *State, err error) {
	if err := s.checkInstallableBy(task); err != nil {
		return nil, err
	}
	previous = CurrentFor(task)
	registry.Store(task, s)
	return previous, nil
}
