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

// Package ctxframe implements the immutable, append-only layer of bindings
// that makes up one link of a frame chain. A Frame never mutates its parent pointer; its
// inputs/computed/replacements maps only ever gain entries, never lose
// them, and a frame is unreachable (and therefore eligible for garbage
// collection) once nothing holds a reference to it or to a descendant.
package ctxframe

import (
	"reflect"
	"sync"

	"github.com/scorestate/ctxcore/internal/ctxerr"
	"github.com/scorestate/ctxcore/internal/ctxkey"
)

// Frame is one layer of bindings plus a link to its parent. The zero value
// is not usable; construct with NewRoot or NewChild.
type Frame struct {
	parent *Frame

	mu           sync.RWMutex
	inputs       map[*ctxkey.Key]any
	computed     map[*ctxkey.Key]any
	replacements map[*ctxkey.Key]*ctxkey.Key
	// readSeen records which keys have had a replacement lookup pass
	// through this frame, so InstallReplacement can enforce write-once:
	// no frame may install a replacement for a key after a read of that
	// key has occurred in this frame.
	readSeen map[*ctxkey.Key]bool
}

// NewRoot creates a parentless frame.
func NewRoot() *Frame {
	return &Frame{}
}

// NewChild creates a frame whose parent is p and whose own maps start
// empty.
func NewChild(p *Frame) *Frame {
	return &Frame{parent: p}
}

// Parent returns the enclosing frame, or nil if this is a root frame.
func (f *Frame) Parent() *Frame { return f.parent }

// LookupInput returns the input bound in this exact frame, if any.
func (f *Frame) LookupInput(k *ctxkey.Key) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.inputs[k]
	return v, ok
}

// LookupComputed returns the memoized output in this exact frame, if any.
func (f *Frame) LookupComputed(k *ctxkey.Key) (any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.computed[k]
	return v, ok
}

// WriteInput installs v as K's input in this frame. It fails with
// *ctxerr.InputConflict if the key has already been frozen in this frame,
// or if it already holds an input that is not equal to v. Equality is
// decided with reflect.DeepEqual: comparable scalars and structs compare
// by value, and two distinct non-nil function values (the common shape of
// a service factory) are never considered equal, which is the closest
// reflect-based approximation of "factories compare by identity" Go offers
// without requiring factories to be declared comparable.
func (f *Frame) WriteInput(k *ctxkey.Key, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.computed[k]; ok {
		return &ctxerr.InputConflict{Key: k, Existing: existing, Attempted: v, Frozen: true}
	}
	if existing, ok := f.inputs[k]; ok {
		if !reflect.DeepEqual(existing, v) {
			return &ctxerr.InputConflict{Key: k, Existing: existing, Attempted: v}
		}
		return nil
	}
	if f.inputs == nil {
		f.inputs = make(map[*ctxkey.Key]any, 1)
	}
	f.inputs[k] = v
	return nil
}

// Freeze records out as K's memoized output in this frame. Callers must
// only freeze a key that already has an input in this same frame (the
// ctxstate read path maintains that invariant).
func (f *Frame) Freeze(k *ctxkey.Key, out any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.computed == nil {
		f.computed = make(map[*ctxkey.Key]any, 1)
	}
	f.computed[k] = out
}

// LookupReplacement returns the redirection installed for k in this exact
// frame, if any.
func (f *Frame) LookupReplacement(k *ctxkey.Key) (*ctxkey.Key, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	to, ok := f.replacements[k]
	return to, ok
}

// MarkReplacementRead records that k's replacement chain was consulted in
// this frame during resolution, closing the write-once window for
// InstallReplacement(k, ...).
func (f *Frame) MarkReplacementRead(k *ctxkey.Key) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readSeen == nil {
		f.readSeen = make(map[*ctxkey.Key]bool, 1)
	}
	f.readSeen[k] = true
}

// InstallReplacement records a K_from -> K_to redirection in this frame. It
// fails with *ctxerr.DynamicRuleError if a read of K_from has already been
// observed in this frame.
func (f *Frame) InstallReplacement(from, to *ctxkey.Key) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readSeen[from] {
		return &ctxerr.DynamicRuleError{Key: from, Reason: "cannot install replacement after a read has been observed in this frame"}
	}
	if f.replacements == nil {
		f.replacements = make(map[*ctxkey.Key]*ctxkey.Key, 1)
	}
	f.replacements[from] = to
	return nil
}
