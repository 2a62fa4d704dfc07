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

// Package ctxstate implements the per-logical-task current frame chain,
// the read/write dispatch that setting and service delegate into, and the
// current-state registry.
package ctxstate

import (
	"sync"

	"github.com/scorestate/ctxcore/internal/ctxerr"
	"github.com/scorestate/ctxcore/internal/ctxframe"
	"github.com/scorestate/ctxcore/internal/ctxkey"
)

// State is a reference to a task's current frame, plus the chain reachable
// through its parents. The zero value is not usable; construct with
// NewRoot.
type State struct {
	top *ctxframe.Frame

	lockMu    sync.Mutex
	lockOwner Task
	lockDepth int
}

// NewRoot creates a state with a single, parentless root frame.
func NewRoot() *State {
	return &State{top: ctxframe.NewRoot()}
}

// Top returns the state's current top frame.
func (s *State) Top() *ctxframe.Frame { return s.top }

// PushNew pushes a fresh empty child frame and returns it along with the
// frame that was current before the push, so a caller (ctxguard) can later
// verify LIFO release order and restore the exact prior frame.
func (s *State) PushNew() (newTop, oldTop *ctxframe.Frame) {
	oldTop = s.top
	s.top = ctxframe.NewChild(oldTop)
	newTop = s.top
	return newTop, oldTop
}

// PopTo restores restoreTo as the top frame, but only if the state's
// current top is still exactly expectedCurrent — i.e. nothing has pushed
// past this guard without popping first. Violating that ordering (releasing
// guards out of LIFO order) is a programmer error.
func (s *State) PopTo(expectedCurrent, restoreTo *ctxframe.Frame) error {
	if s.top != expectedCurrent {
		return &ctxerr.DynamicRuleError{Reason: "scope guard released out of LIFO order"}
	}
	s.top = restoreTo
	return nil
}

// lock records that task holds an open scope guard over this state: a
// state may be locked to its entering task so no other task can install
// it (SetCurrentFor) while that guard is open; writes and frame pushes do
// not consult the lock. Locking is
// reentrant: nested guards over the same state by the same task simply
// increment a depth counter.
func (s *State) lock(task Task) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.lockDepth > 0 && s.lockOwner != task {
		return &ctxerr.DynamicRuleError{Reason: "state is already locked to another task"}
	}
	s.lockOwner = task
	s.lockDepth++
	return nil
}

// unlock releases one level of the lock task holds over this state.
func (s *State) unlock(task Task) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.lockDepth == 0 || s.lockOwner != task {
		return &ctxerr.DynamicRuleError{Reason: "state is not locked to this task"}
	}
	s.lockDepth--
	return nil
}

// checkInstallableBy reports an error if s is currently locked to a task
// other than candidate.
func (s *State) checkInstallableBy(candidate Task) error {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.lockDepth > 0 && s.lockOwner != candidate {
		return &ctxerr.DynamicRuleError{Reason: "cannot install state: locked to another task until its scope guard exits"}
	}
	return nil
}

// Lock and Unlock are exported for ctxguard; user code should go through
// the guard constructors instead of calling these directly.
func (s *State) Lock(task Task) error   { return s.lock(task) }
func (s *State) Unlock(task Task) error { return s.unlock(task) }

// Snapshot is an opaque handle pinning a frame chain for later restoration.
// Because frames are append-only and reference their
// parents, a snapshot is nothing more than a pointer to the top frame at
// the moment it was taken.
type Snapshot struct {
	top *ctxframe.Frame
}

// TakeSnapshot captures the given state's current frame chain.
func TakeSnapshot(s *State) Snapshot {
	return Snapshot{top: s.top}
}

// ToState materializes a fresh State rooted at the snapshot's frame chain.
// Exported for ctxguard, which needs to install a snapshot as current while
// keeping the *evicted* State object itself (not a re-derived snapshot of
// it) so it can later be reinstalled verbatim, lock bookkeeping included.
func (snap Snapshot) ToState() *State {
	return &State{top: snap.top}
}

// Restore atomically installs a state whose top frame is snap as task's
// current state, and returns a snapshot of whatever was current before, so
// the caller can hand that previous snapshot back to a later restore. The
// error comes from SetCurrentFor's lock check, which applies to the state
// being installed; that state is always freshly built from snap and carries
// no lock, and the outgoing state's lock is not checked.
func Restore(task Task, snap Snapshot) (previous Snapshot, err error) {
	prevState, err := SetCurrentFor(task, snap.ToState())
	if err != nil {
		return Snapshot{}, err
	}
	return TakeSnapshot(prevState), nil
}

// --- Read/write dispatch ---

// ReadSetting implements the setting read path for key against the calling
// goroutine's current state.
func ReadSetting(key *ctxkey.Key) (any, error) {
	return Current().readChain(key)
}

// ReadSettingIn implements the setting read path against an explicit state,
// for callers that manage task identity themselves.
func ReadSettingIn(s *State, key *ctxkey.Key) (any, error) {
	return s.readChain(key)
}

// readChain implements the setting read path: the nearest frame's computed
// value wins, otherwise the nearest bound input is transformed and frozen,
// otherwise the key's default is transformed and frozen at the root. It
// also underlies the service read path once replacement resolution has
// produced a canonical key: the canonical key's own Transform ("invoke the
// bound factory") and Default (the declared default factory) are used
// exactly like a setting's transform and default input.
func (s *State) readChain(key *ctxkey.Key) (any, error) {
	for f := s.top; f != nil; f = f.Parent() {
		if out, ok := f.LookupComputed(key); ok {
			return out, nil
		}
		if in, ok := f.LookupInput(key); ok {
			out, err := key.Transform()(in)
			if err != nil {
				return nil, err
			}
			f.Freeze(key, out)
			return out, nil
		}
	}
	def, ok := key.Default()
	if !ok {
		return nil, &ctxerr.MissingBinding{Key: key}
	}
	root := s.top
	for root.Parent() != nil {
		root = root.Parent()
	}
	out, err := key.Transform()(def)
	if err != nil {
		return nil, err
	}
	// record the default as root's input too, so computed[K] in a frame
	// always implies inputs[K] in that same frame.
	if err := root.WriteInput(key, def); err != nil {
		return nil, err
	}
	root.Freeze(key, out)
	return out, nil
}

// Write implements the write path `key <<= value` against the calling
// goroutine's current state: it is the only legal write site, and it never
// descends into parent frames.
func Write(key *ctxkey.Key, value any) error {
	return WriteIn(Current(), key, value)
}

// WriteIn implements the write path against an explicit state.
func WriteIn(s *State, key *ctxkey.Key, value any) error {
	return s.top.WriteInput(key, value)
}

// --- Service replacement resolution ---

// ResolveCanonical follows replacement redirections for key, starting from
// the calling goroutine's current state, until it reaches a key with no
// redirection installed anywhere in the chain (the canonical key).
func ResolveCanonical(key *ctxkey.Key) (*ctxkey.Key, error) {
	return ResolveCanonicalIn(Current(), key)
}

// ResolveCanonicalIn follows replacement redirections against an explicit
// state. A redirection chain that revisits a key it has already seen is a
// cycle and raises *ctxerr.DynamicRuleError, bounding the walk by the
// number of distinct keys encountered.
func ResolveCanonicalIn(s *State, key *ctxkey.Key) (*ctxkey.Key, error) {
	seen := map[*ctxkey.Key]bool{key: true}
	current := key
	for {
		next, ok := s.lookupReplacement(current)
		if !ok {
			return current, nil
		}
		if seen[next] {
			return nil, &ctxerr.DynamicRuleError{Key: key, Reason: "replacement cycle detected"}
		}
		seen[next] = true
		current = next
	}
}

// lookupReplacement walks the frame chain top to root looking for a
// redirection for k, marking every frame it passes through as having
// observed a read of k (closing the write-once window for
// InstallReplacement in those frames).
func (s *State) lookupReplacement(k *ctxkey.Key) (*ctxkey.Key, bool) {
	for f := s.top; f != nil; f = f.Parent() {
		f.MarkReplacementRead(k)
		if to, ok := f.LookupReplacement(k); ok {
			return to, true
		}
	}
	return nil, false
}

// InstallReplacement records K_from -> K_to in the calling goroutine's
// current top frame.
func InstallReplacement(from, to *ctxkey.Key) error {
	return InstallReplacementIn(Current(), from, to)
}

// InstallReplacementIn records K_from -> K_to in s's current top frame.
func InstallReplacementIn(s *State, from, to *ctxkey.Key) error {
	return s.top.InstallReplacement(from, to)
}

// ReadService resolves key's canonical key (following replacements) and
// then reads it exactly like a setting, using its bound factory as the
// transform input. Only the factory input is memoized (in the frame that
// fixes it); the replacement chain itself is re-resolved on every read,
// since replacements are themselves write-once per frame and therefore
// safe to re-walk.
func ReadService(key *ctxkey.Key) (any, error) {
	return ReadServiceIn(Current(), key)
}

// ReadServiceIn resolves and reads key against an explicit state.
func ReadServiceIn(s *State, key *ctxkey.Key) (any, error) {
	canonical, err := ResolveCanonicalIn(s, key)
	if err != nil {
		return nil, err
	}
	return s.readChain(canonical)
}
