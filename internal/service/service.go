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

// Package service is the type-safe, generic facade over ctxkey/ctxstate
// for the Service kind: a factory-produced singleton
// per frame that fixes it, with replacement/redirection resolved at read
// time.
package service

import (
	"fmt"
	"reflect"

	"github.com/scorestate/ctxcore/internal/ctxkey"
	"github.com/scorestate/ctxcore/internal/ctxstate"
)

// Service is a declared factory-backed singleton slot producing values of
// type T. The zero value is not usable; construct with Declare.
type Service[T any] struct {
	key *ctxkey.Key
}

// Declare declares a service with a default factory, under the caller's
// own declaration site. A nil defaultFactory means the service has no
// default and must be bound with Assign before it is ever read.
func Declare[T any](name string, defaultFactory func() (T, error)) Service[T] {
	var wrapped func() (any, error)
	if defaultFactory != nil {
		wrapped = func() (any, error) { return defaultFactory() }
	}
	key := ctxkey.DeclareService(name, wrapped)
	return Service[T]{key: key}
}

// Key exposes the underlying untyped key.
func (s Service[T]) Key() *ctxkey.Key { return s.key }

// Current resolves the service's canonical key (following any replacement
// installed with Replace) and returns the singleton instance for the
// calling goroutine's current state, constructing it with the bound
// factory the first time it's needed in the frame that fixes it.
func (s Service[T]) Current() (T, error) {
	out, err := ctxstate.ReadService(s.key)
	return castOut[T](out, err)
}

// CurrentIn resolves and reads against an explicit state.
func (s Service[T]) CurrentIn(state *ctxstate.State) (T, error) {
	out, err := ctxstate.ReadServiceIn(state, s.key)
	return castOut[T](out, err)
}

// Assign binds factory as the service's producer in the calling
// goroutine's current top frame, exactly like Setting.Assign.
func (s Service[T]) Assign(factory func() (T, error)) error {
	wrapped := func() (any, error) { return factory() }
	return ctxstate.Write(s.key, wrapped)
}

// AssignIn binds factory against an explicit state.
func (s Service[T]) AssignIn(state *ctxstate.State, factory func() (T, error)) error {
	wrapped := func() (any, error) { return factory() }
	return ctxstate.WriteIn(state, s.key, wrapped)
}

// Replace installs a redirection from this service's key to other's, so
// future reads of s resolve to other's instance instead. It fails if a
// read of s has already been observed in the calling goroutine's current
// top frame.
func (s Service[T]) Replace(other Service[T]) error {
	return ctxstate.InstallReplacement(s.key, other.Key())
}

// ReplaceIn installs the redirection against an explicit state.
func (s Service[T]) ReplaceIn(state *ctxstate.State, other Service[T]) error {
	return ctxstate.InstallReplacementIn(state, s.key, other.Key())
}

// Call forwards a zero-or-more-argument method invocation to the current
// instance by name, using reflection. It exists for attribute-forwarding
// convenience in contexts that only hold an untyped
// handle (e.g. a CLI subcommand dispatch table) and cannot spell out T.
// Prefer Current() plus a direct method call wherever the concrete type is
// known at the call site: reflection forwarding loses compile-time
// argument and arity checking.
func (s Service[T]) Call(method string, args ...any) ([]any, error) {
	instance, err := s.Current()
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(instance)
	m := v.MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("ctxcore: service %q has no method %q", s.key.Name(), method)
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := m.Call(in)
	result := make([]any, len(out))
	for i, o := range out {
		result[i] = o.Interface()
	}
	return result, nil
}

func castOut[T any](out any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, _ := out.(T)
	return typed, nil
}
