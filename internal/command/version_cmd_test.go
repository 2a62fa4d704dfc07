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

package command

import (
	"context"
	"testing"

	"github.com/scorestate/ctxcore/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_printsBuildVersionString(t *testing.T) {
	stdout, stderr, err := executeAndResetCommand(context.Background(), rootCmd, []string{"version"})
	require.NoError(t, err)
	assert.Equal(t, "", stderr)
	assert.Equal(t, version.BuildVersionString()+"\n", stdout)
}

func TestVersionCmd_rejectsArgs(t *testing.T) {
	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"version", "extra"})
	require.Error(t, err)
}
