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
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/scorestate/ctxcore/internal/ctxguard"
	"github.com/scorestate/ctxcore/internal/ctxstate"
	"github.com/scorestate/ctxcore/internal/service"
	"github.com/scorestate/ctxcore/internal/setting"
)

var demoCmd = &cobra.Command{
	Use:       "demo {1|2|3|4|5|6}",
	Short:     "Run one of the worked scenarios end to end and print the observed values",
	Args:      cobra.ExactValidArgs(1),
	ValidArgs: []string{"1", "2", "3", "4", "5", "6"},
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, ok := demoScenarios[args[0]]
		if !ok {
			return fmt.Errorf("unknown scenario %q", args[0])
		}
		return scenario(cmd)
	},
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoScenarios = map[string]func(*cobra.Command) error{
	"1": demoBasicSetting,
	"2": demoWriteOnce,
	"3": demoServiceBasic,
	"4": demoServiceReplacement,
	"5": demoFactoryReassignment,
	"6": demoTaskSwitch,
}

func toFloat(input int) (float64, error) { return float64(input), nil }

func demoBasicSetting(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	speed := setting.Declare("speed", 16, toFloat)

	v, err := speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read before entering child: %v\n", v)

	child, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := speed.Assign(48); err != nil {
		return err
	}
	v, err = speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read inside child after writing 48: %v\n", v)
	if err := child.Close(); err != nil {
		return err
	}

	v, err = speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read after exiting child: %v\n", v)
	return nil
}

func demoWriteOnce(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	speed := setting.Declare("speed", 16, toFloat)

	child, err := ctxguard.New()
	if err != nil {
		return err
	}
	defer child.Close()

	if err := speed.Assign(77); err != nil {
		return err
	}
	cmd.Println("wrote 77")
	if err := speed.Assign(99); err == nil {
		return fmt.Errorf("expected an input conflict writing 99 over 77, got none")
	} else {
		cmd.Printf("writing 99 over 77 before any read: %v\n", err)
	}

	fresh, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := speed.Assign(66); err != nil {
		return err
	}
	v, err := speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read after writing only 66: %v\n", v)
	if err := speed.Assign(8); err == nil {
		return fmt.Errorf("expected an input conflict writing 8 after a read, got none")
	} else {
		cmd.Printf("writing 8 after a read: %v\n", err)
	}

	nested, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := speed.Assign(54); err != nil {
		return err
	}
	v, err = speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read in nested child after writing 54: %v\n", v)
	if err := nested.Close(); err != nil {
		return err
	}

	v, err = speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read after exiting nested child: %v\n", v)

	sibling, err := ctxguard.New()
	if err != nil {
		return err
	}
	v, err = speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("read in sibling child without writing: %v\n", v)
	if err := sibling.Close(); err != nil {
		return err
	}
	return fresh.Close()
}

// incrementer is the interface both counter implementations satisfy, so a
// Service[incrementer] can hold either one interchangeably — the shape
// service replacement needs to mean anything.
type incrementer interface {
	Inc()
	Get() int
}

type counter struct {
	mu  sync.Mutex
	val int
}

func (c *counter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val++
}

func (c *counter) Get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}

// extendedCounter increments by 2 instead of 1; it stands in as the
// "replacement" implementation in the service-replacement demos.
type extendedCounter struct {
	counter
}

func (c *extendedCounter) Inc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val += 2
}

func newCounter() (incrementer, error)         { return &counter{}, nil }
func newExtendedCounter() (incrementer, error) { return &extendedCounter{}, nil }

func demoServiceBasic(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	counterSvc := service.Declare[incrementer]("Counter", newCounter)

	instance, err := counterSvc.Current()
	if err != nil {
		return err
	}
	instance.Inc()
	cmd.Printf("value after one increment: %d\n", instance.Get())

	var wg sync.WaitGroup
	var otherValue int
	var otherErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		other, err := counterSvc.Current()
		if err != nil {
			otherErr = err
			return
		}
		otherValue = other.Get()
	}()
	wg.Wait()
	if otherErr != nil {
		return otherErr
	}
	cmd.Printf("value read from a fresh task: %d\n", otherValue)

	instance2, err := counterSvc.Current()
	if err != nil {
		return err
	}
	cmd.Printf("same instance observed again in this task: %t\n", instance2 == instance)
	return nil
}

func demoServiceReplacement(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	counterSvc := service.Declare[incrementer]("Counter", newCounter)
	extendedSvc := service.Declare[incrementer]("ExtendedCounter", newExtendedCounter)

	child, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := counterSvc.Replace(extendedSvc); err != nil {
		return err
	}
	instance, err := counterSvc.Current()
	if err != nil {
		return err
	}
	cmd.Printf("value before increment: %d\n", instance.Get())
	instance.Inc()
	cmd.Printf("value after increment via replacement (adds 2): %d\n", instance.Get())
	if err := child.Close(); err != nil {
		return err
	}

	instance, err = counterSvc.Current()
	if err != nil {
		return err
	}
	cmd.Printf("value after exiting child: %d\n", instance.Get())
	return nil
}

func demoFactoryReassignment(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	counterSvc := service.Declare[incrementer]("Counter", newCounter)

	if _, err := counterSvc.Current(); err != nil {
		return err
	}
	if err := counterSvc.Assign(newExtendedCounter); err == nil {
		return fmt.Errorf("expected an input conflict reassigning the factory at root after a read, got none")
	} else {
		cmd.Printf("reassigning the factory at root after a read: %v\n", err)
	}

	child, err := ctxguard.New()
	if err != nil {
		return err
	}
	defer child.Close()
	if err := counterSvc.Assign(newExtendedCounter); err != nil {
		return err
	}
	instance, err := counterSvc.Current()
	if err != nil {
		return err
	}
	instance.Inc()
	cmd.Printf("factory reassigned in a fresh child; one increment now adds 2: %d\n", instance.Get())
	return nil
}

func demoTaskSwitch(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	speed := setting.Declare("speed", 16, toFloat)
	taskA := ctxstate.CurrentTask()

	childA, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := speed.Assign(48); err != nil {
		return err
	}
	vA, err := speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("task A reads: %v\n", vA)

	var wg sync.WaitGroup
	var vB float64
	var bErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		vB, bErr = speed.Value()
	}()
	wg.Wait()
	if bErr != nil {
		return bErr
	}
	cmd.Printf("task B reads concurrently: %v\n", vB)

	vA2, err := speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("task A reads again: %v\n", vA2)

	snap := ctxguard.Take()
	cmd.Printf("snapshot taken for task %d\n", taskA)
	restoreGuard, err := ctxguard.Snapshot(snap)
	if err != nil {
		return err
	}
	vA3, err := speed.Value()
	if err != nil {
		return err
	}
	cmd.Printf("task A reads after restoring its own snapshot: %v\n", vA3)
	if err := restoreGuard.Close(); err != nil {
		return err
	}

	return childA.Close()
}
