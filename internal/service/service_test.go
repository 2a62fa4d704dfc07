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

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scorestate/ctxcore/internal/ctxerr"
	"github.com/scorestate/ctxcore/internal/ctxguard"
)

type counter struct{ val int }

func (c *counter) Inc()     { c.val++ }
func (c *counter) Get() int { return c.val }

func newCounter() (*counter, error)   { return &counter{}, nil }
func newCounterX2() (*counter, error) { return &counter{val: 100}, nil }

func TestDeclare_sameFrameReturnsSameInstance(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	svc := Declare[*counter]("counter", newCounter)
	a, err := svc.Current()
	require.NoError(t, err)
	b, err := svc.Current()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestDeclare_distinctServicesAtDifferentSitesDontCollide(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	a := Declare[*counter]("a", newCounter)
	b := Declare[*counter]("b", newCounterX2)

	instA, err := a.Current()
	require.NoError(t, err)
	instB, err := b.Current()
	require.NoError(t, err)
	assert.NotSame(t, instA, instB)
	assert.Equal(t, 0, instA.Get())
	assert.Equal(t, 100, instB.Get())
}

func TestReplace_redirectsReadsUntilGuardCloses(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	original := Declare[*counter]("original", newCounter)
	replacement := Declare[*counter]("replacement", newCounterX2)

	child, err := ctxguard.New()
	require.NoError(t, err)
	require.NoError(t, original.Replace(replacement))

	v, err := original.Current()
	require.NoError(t, err)
	assert.Equal(t, 100, v.Get())
	require.NoError(t, child.Close())

	v, err = original.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Get())
}

func TestAssign_replacesFactoryInFreshFrame(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	svc := Declare[*counter]("svc", newCounter)
	_, err = svc.Current()
	require.NoError(t, err)

	err = svc.Assign(newCounterX2)
	require.Error(t, err, "reassigning after a read in the same frame must conflict")
	var conflict *ctxerr.InputConflict
	require.ErrorAs(t, err, &conflict)

	child, err := ctxguard.New()
	require.NoError(t, err)
	defer child.Close()
	require.NoError(t, svc.Assign(newCounterX2))
	v, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, 100, v.Get())
}

func TestCall_forwardsByReflection(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	svc := Declare[*counter]("svc", newCounter)
	_, err = svc.Call("Inc")
	require.NoError(t, err)
	out, err := svc.Call("Get")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0])
}

func TestCall_unknownMethodErrors(t *testing.T) {
	guard, err := ctxguard.Empty()
	require.NoError(t, err)
	defer guard.Close()

	svc := Declare[*counter]("svc", newCounter)
	_, err = svc.Call("DoesNotExist")
	require.Error(t, err)
}
