// Copyright 2024 Humanitec
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildVersionString_containsVersionNumber(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "0.0.0" }()
	assert.True(t, strings.HasPrefix(BuildVersionString(), "1.2.3 (build: "))
}

func TestBuildVersionString_fallsBackWhenNoBuildInfo(t *testing.T) {
	out := BuildVersionString()
	assert.Contains(t, out, "build:")
	assert.Contains(t, out, "sha:")
}
