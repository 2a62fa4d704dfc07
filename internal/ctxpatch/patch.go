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

// Package ctxpatch builds a map-typed Setting input from a sequence of
// dotted-path assignments, the way `ctxctl set` accepts repeated
// `--set path=value` flags on the command line, applying each as a
// path-addressed sjson operation against a plain JSON document that
// becomes a setting's written input.
package ctxpatch

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// Op is one assignment or deletion to apply, in order.
type Op struct {
	Path   string
	Value  any
	Delete bool
}

// Build applies ops in order against an empty JSON document and decodes the
// result into a map[string]any suitable for Setting.Assign.
func Build(ops []Op) (map[string]any, error) {
	doc := []byte("{}")
	var err error
	for i, op := range ops {
		switch {
		case op.Delete:
			doc, err = sjson.DeleteBytes(doc, op.Path)
		default:
			doc, err = sjson.SetBytes(doc, op.Path, op.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("ctxcore: failed to apply patch operation %d (%q): %w", i+1, op.Path, err)
		}
	}
	var out map[string]any
	if err := json.Unmarshal(doc, &out); err != nil {
		return nil, fmt.Errorf("ctxcore: failed to decode patched document: %w", err)
	}
	return out, nil
}

// ParseAssignment splits a "path=value" flag argument as accepted by
// `ctxctl set --set`, attempting to decode value as JSON first (so
// `--set count=3` and `--set enabled=true` produce numbers/bools, not
// strings) and falling back to the raw string otherwise.
func ParseAssignment(raw string) (Op, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '=' {
			path, valueText := raw[:i], raw[i+1:]
			if path == "" {
				return Op{}, fmt.Errorf("ctxcore: empty path in assignment %q", raw)
			}
			return Op{Path: path, Value: decodeValue(valueText)}, nil
		}
	}
	return Op{}, fmt.Errorf("ctxcore: assignment %q is missing '='", raw)
}

func decodeValue(text string) any {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}
