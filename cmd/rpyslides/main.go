/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rpyslides/internal/config"
	"rpyslides/internal/crash"
	applog "rpyslides/internal/log"
	"rpyslides/internal/version"
)

// exitError carries the process exit code of a failed command. Errors of any
// other type come from argument or flag handling and exit with 2.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// failed marks err as a compile or I/O failure (exit 1).
func failed(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 1, err: err}
}

// app holds the state shared by all commands of one invocation.
type app struct {
	stdout, stderr io.Writer
	crash          *crash.Info

	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	cfg config.AppConfig
	log *slog.Logger
}

func main() {
	info := &crash.Info{}
	defer crash.Recover(info)
	if code := execute(os.Args[1:], os.Stdout, os.Stderr, info); code != 0 {
		_ = applog.Close()
		os.Exit(code)
	}
	_ = applog.Close()
}

// execute runs the command line and returns the exit code.
func execute(args []string, stdout, stderr io.Writer, info *crash.Info) int {
	a := &app{stdout: stdout, stderr: stderr, crash: info}
	root := a.rootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, "Error:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 2
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rpyslides",
		Short: "Compile Ren'Py visual-novel scripts into slide decks",
		Long: `rpyslides reads a Ren'Py script, follows the story from its entry label and
writes one slide per line of dialogue and per menu, with hyperlinks for jumps
and choices. Output is a LaTeX beamer document, a PDF or JSON.

Settings come from rpyslides.yaml, then RPS_* environment variables (a .env file
next to the config is honored), then command-line flags.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default ./rpyslides.yaml when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug|info|warn|error")
	pf.StringVar(&a.logFormat, "log-format", "", "console|json")
	pf.StringVar(&a.logFile, "log-file", "", "also write JSON logs to this rotating file")

	root.AddCommand(
		a.buildCmd(),
		a.dumpCmd(),
		a.indexCmd(),
		a.searchCmd(),
		a.initCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the configuration and initializes logging for every command.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, used, err := config.Load(a.configPath)
	if err != nil {
		return failed(err)
	}
	if s := strings.TrimSpace(a.logLevel); s != "" {
		cfg.Logging.Level = s
	}
	if s := strings.TrimSpace(a.logFormat); s != "" {
		cfg.Logging.Format = s
	}
	if s := strings.TrimSpace(a.logFile); s != "" {
		cfg.Logging.File = s
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   a.stderr,
	})
	a.cfg = cfg
	a.log = applog.WithComponent("cli")
	a.crash.Command = cmd.CommandPath()
	a.log.Debug("start", slog.String("cmd", cmd.CommandPath()), slog.String("config", used))
	return nil
}

// scriptArg lets an optional positional argument replace the configured input.
func (a *app) scriptArg(args []string) {
	if len(args) > 0 {
		a.cfg.Input = args[0]
	}
	a.crash.Script = a.cfg.Input
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(a.stdout, "rpyslides", version.String())
		},
	}
}
