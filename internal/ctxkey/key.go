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

// Package ctxkey implements the stable, identity-comparable handle for a
// bindable slot (a setting, service, or resource kind). Keys are the only
// thing frames and states use as map keys; everything else about a binding
// (its default, its transform) is carried on the Key itself so the rest of
// the engine never has to special-case settings vs. services.
package ctxkey

import (
	"runtime"
	"sync"
)

// Kind distinguishes the three binding slots: Setting, Service, Resource.
type Kind int

const (
	Setting Kind = iota
	Service
	Resource
)

func (k Kind) String() string {
	switch k {
	case Setting:
		return "setting"
	case Service:
		return "service"
	case Resource:
		return "resource"
	default:
		return "unknown"
	}
}

// Transform computes the effective value from a raw input. For a Setting
// this is the user-supplied transform; for a Service it is always "call the
// input as a zero-argument factory" (see DeclareService).
type Transform func(input any) (any, error)

// Key is the stable handle for one binding slot. Two keys are equal iff
// they are the same *Key value — callers must never copy a Key by value.
type Key struct {
	kind       Kind
	name       string
	hasDefault bool
	defaultVal any
	transform  Transform
}

func (k *Key) Kind() Kind { return k.kind }
func (k *Key) Name() string {
	if k == nil {
		return "<nil>"
	}
	return k.name
}

// Default returns the key's declared default input and whether one exists.
// A key declared without a default raises MissingBinding on a read that
// finds no frame-provided input.
func (k *Key) Default() (any, bool) { return k.defaultVal, k.hasDefault }

// Transform returns the function used to turn a raw input into the
// effective value.
func (k *Key) Transform() Transform { return k.transform }

// declSite memoizes one Key per call site so re-declaring the same logical
// key — e.g. a helper function that is invoked more than once but always
// declares "the same" setting — returns the identical handle: declaration
// is idempotent per declaration site. A call site is
// identified by its program counter, which is stable for the lifetime of
// the process; this is the same trick small goroutine-local-storage shims
// use to key per-call-site caches.
//
// The exported Declare* functions below are only ever reached through
// exactly one generic wrapper frame (setting.Declare/DeclareNoDefault,
// service.Declare), so their skip counts are fixed assuming that shape.
// That fixed depth matters more than it looks: Go monomorphizes a generic
// function body once per instantiating type set, so the return address
// inside e.g. setting.Declare[int, float64] is identical across every call
// to it regardless of where in user code it's invoked from — only walking
// one frame further, to the user's own call site, gives distinct keys for
// distinct declarations that happen to share type parameters.
var declSite sync.Map // map[uintptr]*Key

func declare(skip int, kind Kind, name string, hasDefault bool, defaultVal any, transform Transform) *Key {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return &Key{kind: kind, name: name, hasDefault: hasDefault, defaultVal: defaultVal, transform: transform}
	}
	if existing, ok := declSite.Load(pc); ok {
		return existing.(*Key)
	}
	k := &Key{kind: kind, name: name, hasDefault: hasDefault, defaultVal: defaultVal, transform: transform}
	actual, _ := declSite.LoadOrStore(pc, k)
	return actual.(*Key)
}

// DeclareSetting declares a setting key with a default input and a
// transform applied to whatever input ends up bound (the default, or a
// frame's written value).
func DeclareSetting(name string, defaultInput any, transform Transform) *Key {
	return declare(3, Setting, name, true, defaultInput, transform)
}

// DeclareSettingNoDefault declares a setting key with no default input. A
// read that finds no frame-provided input raises MissingBinding.
func DeclareSettingNoDefault(name string, transform Transform) *Key {
	return declare(3, Setting, name, false, nil, transform)
}

// DeclareService declares a service key with a default factory. Reading the
// service invokes whichever factory is bound (the default, or one written
// with `key <<= factory`) at most once per frame that fixes the input.
func DeclareService(name string, defaultFactory func() (any, error)) *Key {
	invoke := Transform(func(input any) (any, error) {
		factory := input.(func() (any, error))
		return factory()
	})
	var defaultVal any
	hasDefault := defaultFactory != nil
	if hasDefault {
		defaultVal = defaultFactory
	}
	return declare(3, Service, name, hasDefault, defaultVal, invoke)
}

// DeclareResource declares a resource key. Resources share the service
// read/write discipline but are kept as a distinct Kind for diagnostics and
// for the action/resource lifecycle collaborator (out of scope here) to
// recognize which keys it owns.
func DeclareResource(name string, defaultFactory func() (any, error)) *Key {
	invoke := Transform(func(input any) (any, error) {
		factory := input.(func() (any, error))
		return factory()
	})
	var defaultVal any
	hasDefault := defaultFactory != nil
	if hasDefault {
		defaultVal = defaultFactory
	}
	return declare(3, Resource, name, hasDefault, defaultVal, invoke)
}
