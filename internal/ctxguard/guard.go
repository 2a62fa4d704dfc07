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

// Package ctxguard provides the scope-guard wrapper: a value that pushes a
// new frame (or installs a whole replacement state) on construction and is
// obliged to undo exactly that change, in LIFO order, when closed.
package ctxguard

import (
	"github.com/scorestate/ctxcore/internal/ctxerr"
	"github.com/scorestate/ctxcore/internal/ctxframe"
	"github.com/scorestate/ctxcore/internal/ctxstate"
)

// Guard is returned by New, Empty, and Snapshot. Close must be called
// exactly once, and guards opened on the same task must be closed in the
// reverse of the order they were opened — violating that order is reported
// as a *ctxerr.DynamicRuleError rather than silently corrupting the frame
// chain.
type Guard struct {
	task ctxstate.Task

	// one of the two release strategies below is populated, never both.
	frameRelease *frameRelease
	stateRelease *stateRelease

	locked bool
	closed bool
}

type frameRelease struct {
	state           *ctxstate.State
	expectedCurrent *ctxframe.Frame
	restoreTo       *ctxframe.Frame
}

type stateRelease struct {
	locked   *ctxstate.State
	previous *ctxstate.State
}

// New pushes a fresh child frame onto the calling goroutine's current
// state and locks that state to the calling task for the guard's lifetime.
func New() (*Guard, error) {
	return newFrameGuard(ctxstate.CurrentTask(), true)
}

// Empty installs a brand new, parentless root state for the calling task —
// unlike New, nothing is inherited from whatever state was current before.
// Intended for test isolation. The previous state is restored on Close.
func Empty() (*Guard, error) {
	task := ctxstate.CurrentTask()
	previous, err := ctxstate.SetCurrentFor(task, ctxstate.NewRoot())
	if err != nil {
		return nil, err
	}
	installed := ctxstate.CurrentFor(task)
	if err := installed.Lock(task); err != nil {
		_, _ = ctxstate.SetCurrentFor(task, previous)
		return nil, err
	}
	return &Guard{
		task:         task,
		stateRelease: &stateRelease{locked: installed, previous: previous},
		locked:       true,
	}, nil
}

func newFrameGuard(task ctxstate.Task, lock bool) (*Guard, error) {
	state := ctxstate.CurrentFor(task)
	if lock {
		if err := state.Lock(task); err != nil {
			return nil, err
		}
	}
	newTop, oldTop := state.PushNew()
	return &Guard{
		task: task,
		frameRelease: &frameRelease{
			state:           state,
			expectedCurrent: newTop,
			restoreTo:       oldTop,
		},
		locked: lock,
	}, nil
}

// Snapshot installs snap as the calling task's current state and locks it
// to that task, restoring whatever was previously current on Close.
//
// Unlike the public ctxstate.Restore/Snapshot pair — which round-trips
// through Snapshot values and so always materializes a fresh *ctxstate.State
// on install — this goes through ctxstate.SetCurrentFor directly and keeps
// the literal *ctxstate.State object that gets evicted. That matters when a
// Snapshot guard is nested inside a still-open frame guard on the same task:
// the frame guard holds a direct pointer to its state and its lock
// bookkeeping, and Close must hand back that exact object, not a rebuilt
// stand-in for it.
func Snapshot(snap ctxstate.Snapshot) (*Guard, error) {
	task := ctxstate.CurrentTask()
	newState := snap.ToState()
	previous, err := ctxstate.SetCurrentFor(task, newState)
	if err != nil {
		return nil, err
	}
	if err := newState.Lock(task); err != nil {
		// roll back the install before reporting failure.
		_, _ = ctxstate.SetCurrentFor(task, previous)
		return nil, err
	}
	return &Guard{
		task:         task,
		stateRelease: &stateRelease{locked: newState, previous: previous},
		locked:       true,
	}, nil
}

// Take captures the calling task's current frame chain as a Snapshot that
// can later be installed with Snapshot.
func Take() ctxstate.Snapshot {
	return ctxstate.TakeSnapshot(ctxstate.CurrentFor(ctxstate.CurrentTask()))
}

// Close releases the guard. For a frame guard this pops exactly the frame
// New pushed, failing with *ctxerr.DynamicRuleError if anything else is
// now on top (a nested guard that was never closed). For an Empty or
// Snapshot guard this restores whatever state was current before it ran.
func (g *Guard) Close() error {
	if g.closed {
		return &ctxerr.DynamicRuleError{Reason: "guard closed more than once"}
	}
	g.closed = true

	var err error
	var lockedState *ctxstate.State
	switch {
	case g.frameRelease != nil:
		r := g.frameRelease
		lockedState = r.state
		err = r.state.PopTo(r.expectedCurrent, r.restoreTo)
	case g.stateRelease != nil:
		r := g.stateRelease
		lockedState = r.locked
		_, err = ctxstate.SetCurrentFor(g.task, r.previous)
	}
	if err != nil {
		return err
	}
	if g.locked {
		return lockedState.Unlock(g.task)
	}
	return nil
}
