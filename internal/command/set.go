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

	"github.com/scorestate/ctxcore/internal/ctxguard"
	"github.com/scorestate/ctxcore/internal/ctxpatch"
	"github.com/scorestate/ctxcore/internal/setting"
	"github.com/scorestate/ctxcore/internal/transform"
)

var setAssignments []string

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Build a structured setting input from repeated --set path=value flags and print the decoded result",
	Long: `set demonstrates binding a Setting[map[string]any, T] from CLI flags: each --set builds one
dotted-path assignment into a JSON document (via ctxpatch, the same sjson-based path addressing
the compose document patcher uses), which is then assigned as the setting's input and decoded
into a struct with mapstructure.
`,
	Args:          cobra.ExactArgs(0),
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runSet(cmd)
	},
}

func init() {
	setCmd.Flags().StringArrayVar(&setAssignments, "set", nil, "a path=value assignment, may be repeated")
	rootCmd.AddCommand(setCmd)
}

type setResult struct {
	Name  string
	Count int
}

func runSet(cmd *cobra.Command) error {
	ops := make([]ctxpatch.Op, 0, len(setAssignments))
	for _, raw := range setAssignments {
		op, err := ctxpatch.ParseAssignment(raw)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}
	doc, err := ctxpatch.Build(ops)
	if err != nil {
		return err
	}

	guard, err := ctxguard.Empty()
	if err != nil {
		return err
	}
	defer guard.Close()

	decoded := setting.DeclareNoDefault("patched-input", transform.DecodeStruct[setResult]())
	if err := decoded.Assign(doc); err != nil {
		return err
	}
	result, err := decoded.Value()
	if err != nil {
		return err
	}
	cmd.Printf("name=%q count=%d\n", result.Name, result.Count)
	return nil
}
