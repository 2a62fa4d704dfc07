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

// Package ctxdebug is a read-only introspection view of a frame chain, for
// `ctxctl inspect` and for tests that want to assert on the shape of a
// State without reaching into ctxframe's unexported maps.
package ctxdebug

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/scorestate/ctxcore/internal/ctxframe"
	"github.com/scorestate/ctxcore/internal/ctxkey"
)

// Binding is one key's observed state within a single frame.
type Binding struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Value  any    `yaml:"value,omitempty"`
	Frozen bool   `yaml:"frozen"`
}

// FrameView is one frame's bindings, ordered shallowest (top) first by the
// caller that builds the chain.
type FrameView struct {
	Depth    int       `yaml:"depth"`
	Bindings []Binding `yaml:"bindings,omitempty"`
}

// Chain is the full introspected frame chain from a state's top frame down
// to its root.
type Chain struct {
	Frames []FrameView `yaml:"frames"`
}

// Dump walks top's parent chain, recording every key named in keys that has
// either an input or a computed value bound in that exact frame. Keys must
// be supplied explicitly: a Frame does not expose an enumerable key set,
// and listing "all bindings" would require every Setting/Service
// declaration to register itself in a global index.
func Dump(top *ctxframe.Frame, keys []*ctxkey.Key) Chain {
	var chain Chain
	depth := 0
	for f := top; f != nil; f = f.Parent() {
		view := FrameView{Depth: depth}
		for _, k := range keys {
			if out, ok := f.LookupComputed(k); ok {
				view.Bindings = append(view.Bindings, Binding{Name: k.Name(), Kind: k.Kind().String(), Value: out, Frozen: true})
				continue
			}
			if in, ok := f.LookupInput(k); ok {
				view.Bindings = append(view.Bindings, Binding{Name: k.Name(), Kind: k.Kind().String(), Value: in, Frozen: false})
			}
		}
		chain.Frames = append(chain.Frames, view)
		depth++
	}
	return chain
}

// YAML renders chain as a YAML document for CLI output.
func (c Chain) YAML() (string, error) {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("ctxcore: failed to marshal frame chain: %w", err)
	}
	return string(raw), nil
}
