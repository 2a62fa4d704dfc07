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

// Package setting is the type-safe, generic facade over ctxkey/ctxframe/
// ctxstate for the Setting kind: a pure transform from some
// input type to an effective value type, scoped to whatever frame chain is
// current when it is read.
package setting

import (
	"github.com/scorestate/ctxcore/internal/ctxkey"
	"github.com/scorestate/ctxcore/internal/ctxstate"
)

// Setting is a declared binding slot from an input of type In to an
// effective value of type Out. The zero value is not usable; construct
// with Declare or DeclareNoDefault.
type Setting[In, Out any] struct {
	key *ctxkey.Key
}

// Declare declares a setting with a default input and a transform, under
// the caller's own declaration site (see ctxkey's call-site memoization).
// Calling Declare again from the exact same source line returns a Setting
// wrapping the identical underlying key.
func Declare[In, Out any](name string, defaultInput In, transform func(In) (Out, error)) Setting[In, Out] {
	key := ctxkey.DeclareSetting(name, defaultInput, wrapTransform(transform))
	return Setting[In, Out]{key: key}
}

// DeclareNoDefault declares a setting with no default input. Reading it
// without ever having written an input raises *ctxerr.MissingBinding.
func DeclareNoDefault[In, Out any](name string, transform func(In) (Out, error)) Setting[In, Out] {
	key := ctxkey.DeclareSettingNoDefault(name, wrapTransform(transform))
	return Setting[In, Out]{key: key}
}

func wrapTransform[In, Out any](transform func(In) (Out, error)) ctxkey.Transform {
	return func(input any) (any, error) {
		typed, _ := input.(In)
		return transform(typed)
	}
}

// Key exposes the underlying untyped key, for collaborators (ctxdebug,
// ctxpatch) that operate across kinds.
func (s Setting[In, Out]) Key() *ctxkey.Key { return s.key }

// Value reads the effective value for the calling goroutine's current
// state, applying the transform at most once per frame that fixes the
// input.
func (s Setting[In, Out]) Value() (Out, error) {
	out, err := ctxstate.ReadSetting(s.key)
	return castOut[Out](out, err)
}

// ValueIn reads the effective value against an explicit state, for callers
// that manage their own task identity.
func (s Setting[In, Out]) ValueIn(state *ctxstate.State) (Out, error) {
	out, err := ctxstate.ReadSettingIn(state, s.key)
	return castOut[Out](out, err)
}

// Assign binds in as the setting's input in the calling goroutine's
// current top frame. It fails with *ctxerr.InputConflict if that frame
// already has a different input bound, or if the setting has already been
// read (and therefore frozen) in that frame.
func (s Setting[In, Out]) Assign(in In) error {
	return ctxstate.Write(s.key, in)
}

// AssignIn binds in against an explicit state's current top frame.
func (s Setting[In, Out]) AssignIn(state *ctxstate.State, in In) error {
	return ctxstate.WriteIn(state, s.key, in)
}

func castOut[Out any](out any, err error) (Out, error) {
	var zero Out
	if err != nil {
		return zero, err
	}
	typed, _ := out.(Out)
	return typed, nil
}
