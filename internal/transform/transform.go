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

// Package transform collects reusable Setting/Service transform
// constructors: template rendering, struct decoding, default merging. Each
// one returns a plain `func(In) (Out, error)` shaped to plug straight into
// setting.Declare or setting.DeclareNoDefault.
package transform

import (
	"bytes"
	"fmt"
	"text/template"

	"dario.cat/mergo"
	"github.com/Masterminds/sprig/v3"
	"github.com/go-viper/mapstructure/v2"
)

// TemplateString calls TemplateStringNamed with an empty template body, so
// it executes the empty template against data and returns the empty
// string; it does not take a template from data. Use TemplateStringNamed
// or TemplateText to render an actual template body.
func TemplateString(data any) (string, error) {
	return TemplateStringNamed("", data)
}

// TemplateStringNamed parses rawTemplate (with sprig's function map
// available) and executes it against data. Use TemplateText to build a
// transform closed over a fixed template body.
func TemplateStringNamed(rawTemplate string, data any) (string, error) {
	tmpl, err := template.New("").Funcs(sprig.FuncMap()).Parse(rawTemplate)
	if err != nil {
		return "", fmt.Errorf("ctxcore: failed to parse template: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := tmpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("ctxcore: failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// TemplateText returns a transform that renders rawTemplate (parsed once,
// at construction time) against whatever map input a setting is given.
// ValidateTemplate should be called at declaration time to fail fast on a
// malformed template body.
func TemplateText(rawTemplate string) func(map[string]any) (string, error) {
	tmpl, err := template.New("").Funcs(sprig.FuncMap()).Parse(rawTemplate)
	return func(data map[string]any) (string, error) {
		if err != nil {
			return "", fmt.Errorf("ctxcore: failed to parse template: %w", err)
		}
		buf := &bytes.Buffer{}
		if err := tmpl.Execute(buf, data); err != nil {
			return "", fmt.Errorf("ctxcore: failed to execute template: %w", err)
		}
		return buf.String(), nil
	}
}

// ValidateTemplate parses rawTemplate without executing it, so a CLI
// command can reject a malformed template at configuration time rather
// than at first read.
func ValidateTemplate(rawTemplate string) error {
	if _, err := template.New("").Funcs(sprig.FuncMap()).Parse(rawTemplate); err != nil {
		return fmt.Errorf("ctxcore: failed to parse template: %w", err)
	}
	return nil
}

// DecodeStruct returns a transform that decodes a generic map input into a
// typed struct with mapstructure, the idiomatic way to give a
// setting.Setting[map[string]any, T] a structured effective value.
func DecodeStruct[T any]() func(map[string]any) (T, error) {
	return func(input map[string]any) (T, error) {
		var out T
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &out,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return out, fmt.Errorf("ctxcore: failed to build decoder: %w", err)
		}
		if err := dec.Decode(input); err != nil {
			return out, fmt.Errorf("ctxcore: failed to decode input: %w", err)
		}
		return out, nil
	}
}

// MergeDefaults returns a transform that merges a frame's raw map input
// over defaults, with input values taking precedence. Adapted from
// provision.go's mergo.Merge(&out.Metadata, k, mergo.WithOverride) call.
func MergeDefaults(defaults map[string]any) func(map[string]any) (map[string]any, error) {
	return func(input map[string]any) (map[string]any, error) {
		out := make(map[string]any, len(defaults))
		for k, v := range defaults {
			out[k] = v
		}
		if err := mergo.Merge(&out, input, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("ctxcore: failed to merge defaults: %w", err)
		}
		return out, nil
	}
}
