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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/scorestate/ctxcore/internal/ctxlog"
	"github.com/scorestate/ctxcore/internal/version"
)

var (
	verbosity int
	quiet     bool

	rootCmd = &cobra.Command{
		Use:   "ctxctl",
		Short: "Exercise the contextual state engine from the command line",
		Long: `ctxctl is a small front end over the contextual state engine: scoped,
write-once, task-switchable bindings that replace process-global and
thread-local variables.`,
		Version:           version.BuildVersionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity and detail by specifying this flag one or more times")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Mute any logging output")
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError + 1
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	slog.SetDefault(ctxlog.New(cmd.ErrOrStderr(), level))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

// Main is the entry point cmd/ctxctl delegates to.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
