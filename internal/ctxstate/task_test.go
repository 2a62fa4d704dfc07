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

package ctxstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGoroutineID(t *testing.T) {
	got := parseGoroutineID([]byte("goroutine 42 [running]:\nmore stack here"))
	assert.Equal(t, uint64(42), got)
}

func TestParseGoroutineID_malformedInputReturnsZero(t *testing.T) {
	assert.Equal(t, uint64(0), parseGoroutineID([]byte("not a goroutine dump")))
	assert.Equal(t, uint64(0), parseGoroutineID([]byte("goroutine notanumber [running]:")))
}

func TestCurrentTask_stableWithinOneGoroutine(t *testing.T) {
	a := CurrentTask()
	b := CurrentTask()
	assert.Equal(t, a, b)
}

func TestCurrentTask_differsAcrossGoroutines(t *testing.T) {
	var wg sync.WaitGroup
	ids := make(chan Task, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- CurrentTask()
		}()
	}
	wg.Wait()
	close(ids)
	first := <-ids
	second := <-ids
	assert.NotEqual(t, first, second)
}
