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

package ctxguard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorestate/ctxcore/internal/ctxkey"
	"github.com/scorestate/ctxcore/internal/ctxstate"
)

func settingKeyAt(name string, def int) *ctxkey.Key {
	return ctxkey.DeclareSetting(name, def, func(in any) (any, error) { return in, nil })
}

func TestEmpty_isolatesFromWhateverWasCurrent(t *testing.T) {
	task := ctxstate.CurrentTask()
	k := settingKeyAt("speed", 16)
	require.NoError(t, ctxstate.WriteIn(ctxstate.CurrentFor(task), k, 48))

	guard, err := Empty()
	require.NoError(t, err)

	v, err := ctxstate.ReadSettingIn(ctxstate.CurrentFor(task), k)
	require.NoError(t, err)
	assert.Equal(t, 16, v, "Empty must install a parentless root, not inherit the prior state")

	require.NoError(t, guard.Close())
}

func TestEmpty_restoresExactPriorStateObjectOnClose(t *testing.T) {
	task := ctxstate.CurrentTask()
	before := ctxstate.CurrentFor(task)

	guard, err := Empty()
	require.NoError(t, err)
	require.NoError(t, guard.Close())

	assert.Same(t, before, ctxstate.CurrentFor(task))
}

func TestNew_pushesChildFrameAndPopsOnClose(t *testing.T) {
	empty, err := Empty()
	require.NoError(t, err)
	defer empty.Close()

	task := ctxstate.CurrentTask()
	root := ctxstate.CurrentFor(task).Top()

	child, err := New()
	require.NoError(t, err)
	assert.NotSame(t, root, ctxstate.CurrentFor(task).Top())

	require.NoError(t, child.Close())
	assert.Same(t, root, ctxstate.CurrentFor(task).Top())
}

func TestClose_twiceIsRejected(t *testing.T) {
	empty, err := Empty()
	require.NoError(t, err)
	require.NoError(t, empty.Close())
	err = empty.Close()
	require.Error(t, err)
}

func TestClose_outOfLIFOOrderIsRejected(t *testing.T) {
	empty, err := Empty()
	require.NoError(t, err)
	defer empty.Close()

	outer, err := New()
	require.NoError(t, err)
	_, err = New()
	require.NoError(t, err)

	// closing outer while the nested guard is still open violates LIFO.
	err = outer.Close()
	require.Error(t, err)
}

func TestNew_secondGuardOnSameTaskIsReentrant(t *testing.T) {
	// New() re-locks the same already-locked state for the same task
	// rather than failing, since the lock exists to keep *other*
	// tasks out, not to forbid nested guards by the owning task.
	empty, err := Empty()
	require.NoError(t, err)
	defer empty.Close()

	child, err := New()
	require.NoError(t, err)
	defer child.Close()

	grandchild, err := New()
	require.NoError(t, err)
	require.NoError(t, grandchild.Close())
}

func TestSnapshotGuard_nestedInsideOpenFrameGuardPreservesStateIdentity(t *testing.T) {
	// This reproduces the scenario demoTaskSwitch exercises: a snapshot
	// round trip opened and closed entirely within a still-open frame
	// guard on the same task must hand the frame guard back the exact
	// state object it started with, lock bookkeeping included, so its
	// own Close (a plain PopTo) keeps working.
	empty, err := Empty()
	require.NoError(t, err)
	defer empty.Close()

	k := settingKeyAt("speed", 16)
	task := ctxstate.CurrentTask()

	frameGuard, err := New()
	require.NoError(t, err)
	require.NoError(t, ctxstate.Write(k, 48))

	stateBeforeSnapshot := ctxstate.CurrentFor(task)
	topBeforeSnapshot := stateBeforeSnapshot.Top()

	snap := Take()
	restoreGuard, err := Snapshot(snap)
	require.NoError(t, err)

	v, err := ctxstate.ReadSetting(k)
	require.NoError(t, err)
	assert.Equal(t, 48, v)

	require.NoError(t, restoreGuard.Close())

	assert.Same(t, stateBeforeSnapshot, ctxstate.CurrentFor(task),
		"the frame guard's own state object must be reinstalled verbatim, not a rebuilt stand-in")
	assert.Same(t, topBeforeSnapshot, ctxstate.CurrentFor(task).Top())

	require.NoError(t, frameGuard.Close())
}

func TestSnapshot_installsGivenFrameChain(t *testing.T) {
	empty, err := Empty()
	require.NoError(t, err)
	defer empty.Close()

	task := ctxstate.CurrentTask()
	k := settingKeyAt("speed", 16)
	require.NoError(t, ctxstate.Write(k, 48))
	snap := Take()

	other, err := Empty()
	require.NoError(t, err)
	require.NoError(t, other.Close())

	guard, err := Snapshot(snap)
	require.NoError(t, err)

	v, err := ctxstate.ReadSettingIn(ctxstate.CurrentFor(task), k)
	require.NoError(t, err)
	assert.Equal(t, 48, v)

	require.NoError(t, guard.Close())
}

func TestNew_concurrentTasksDoNotInterfere(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			empty, err := Empty()
			if err != nil {
				return
			}
			defer empty.Close()
			k := settingKeyAt("speed", 16)
			_ = ctxstate.Write(k, 10+i)
			v, err := ctxstate.ReadSetting(k)
			if err == nil {
				results[i] = v.(int)
			}
		}(i)
	}
	wg.Wait()
	for i, v := range results {
		assert.Equal(t, 10+i, v)
	}
}
