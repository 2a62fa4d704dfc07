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
	"github.com/spf13/cobra"

	"github.com/scorestate/ctxcore/internal/ctxdebug"
	"github.com/scorestate/ctxcore/internal/ctxguard"
	"github.com/scorestate/ctxcore/internal/ctxkey"
	"github.com/scorestate/ctxcore/internal/ctxstate"
	"github.com/scorestate/ctxcore/internal/service"
	"github.com/scorestate/ctxcore/internal/setting"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Bind a couple of representative settings/services across nested frames, then print the frame chain as YAML",
	Long: `inspect exercises ctxdebug.Dump directly: it opens a fresh root state, reads a setting at its
default and resolves a service there, pushes one child frame, writes and reads the setting in it,
and renders the resulting chain (shallowest frame first) so its shape can be inspected without
reaching into unexported frame internals.
`,
	Args:          cobra.ExactArgs(0),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runInspect(cmd)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command) error {
	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	speed := setting.Declare("speed", 16, toFloat)
	counterSvc := service.Declare[incrementer]("Counter", newCounter)

	if _, err := speed.Value(); err != nil {
		return err
	}
	if _, err := counterSvc.Current(); err != nil {
		return err
	}

	child, err := ctxguard.New()
	if err != nil {
		return err
	}
	if err := speed.Assign(48); err != nil {
		return err
	}
	if _, err := speed.Value(); err != nil {
		return err
	}

	task := ctxstate.CurrentTask()
	keys := []*ctxkey.Key{speed.Key(), counterSvc.Key()}
	chain := ctxdebug.Dump(ctxstate.CurrentFor(task).Top(), keys)
	out, err := chain.YAML()
	if err != nil {
		return err
	}

	if err := child.Close(); err != nil {
		return err
	}

	cmd.Print(out)
	return nil
}
