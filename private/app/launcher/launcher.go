// Copyright 2020 Anapaya Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package launcher includes the shared application execution boilerplate of
// the command line tools.
//
// The launcher adds the --config and --log.* flags to the main command, binds
// all flags and the environment to a viper configuration store, loads the
// TOML configuration file into the application config, sets up logging and
// finally calls Main.
package launcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scionproto/scion-extn/pkg/log"
	"github.com/scionproto/scion-extn/pkg/metrics"
	"github.com/scionproto/scion-extn/pkg/private/prom"
	"github.com/scionproto/scion-extn/pkg/private/serrors"
	"github.com/scionproto/scion-extn/private/app"
	"github.com/scionproto/scion-extn/private/app/command"
	libconfig "github.com/scionproto/scion-extn/private/config"
)

// Configuration keys used by the launcher.
const (
	cfgConfigFile                = "config"
	cfgLogConsoleLevel           = "log.console.level"
	cfgLogConsoleFormat          = "log.console.format"
	cfgLogConsoleStacktraceLevel = "log.console.stacktrace_level"
)

// Application models a command line application.
type Application struct {
	// TOMLConfig holds the Go data structure for the application-specific
	// TOML configuration.
	TOMLConfig libconfig.Config

	// ShortName is the short name of the application. If empty, the
	// executable name is used.
	ShortName string

	// EnvPrefix is the prefix of the environment variables that override
	// flags. E.g., with prefix EXTNDUMP the flag --log.level is read from
	// EXTNDUMP_LOG_CONSOLE_LEVEL. If empty, the environment is not consulted.
	EnvPrefix string

	// Version is reported by the version command. If empty, the module
	// version from the build info is used.
	Version string

	// Command is the main command of the application. The launcher adds the
	// common flags and sets RunE; the caller sets the name, help texts,
	// argument validation and the application specific flags.
	Command *cobra.Command

	// Main is the custom logic of the application. The viper instance has
	// all flags of Command bound; v.IsSet reports whether a flag or the
	// environment overrides the TOML configuration.
	Main func(ctx context.Context, v *viper.Viper, args []string) error

	// ErrorWriter specifies where error output should be printed. If nil,
	// os.Stderr is used.
	ErrorWriter io.Writer

	// Output is the standard output of the commands. If nil, os.Stdout is
	// used.
	Output io.Writer

	// Registerer is used for the log entry metrics. If nil, the default
	// registerer is used.
	Registerer prometheus.Registerer

	config *viper.Viper
}

// Run sets up the command line harness, runs the application and exits the
// process with the exit code of the application.
//
// Run uses the following globals:
//
//	os.Args
//
// On error, the exit code is taken from app.ExitCode, or 2 if the error does
// not carry one.
func (a *Application) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(a.getErrorWriter(), "Error: %v\n", err)
		code := app.ExitCode(err)
		if code == -1 {
			code = 2
		}
		stop()
		os.Exit(code)
	}
}

// Execute runs the application with the given command line arguments.
func (a *Application) Execute(ctx context.Context, args []string) error {
	root := a.newCommandTree(filepath.Base(os.Args[0]))
	root.SetArgs(args)
	if a.Output != nil {
		root.SetOut(a.Output)
	}
	return root.ExecuteContext(ctx)
}

func (a *Application) newCommandTree(executable string) *cobra.Command {
	shortName := a.ShortName
	if shortName == "" {
		shortName = executable
	}
	root := &cobra.Command{
		Use:           shortName,
		Short:         fmt.Sprintf("%s command line tool", shortName),
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	a.config = viper.New()
	a.config.SetDefault(cfgLogConsoleLevel, log.DefaultConsoleLevel)
	a.config.SetDefault(cfgLogConsoleFormat, "human")
	a.config.SetDefault(cfgLogConsoleStacktraceLevel, log.DefaultStacktraceLevel)
	if a.EnvPrefix != "" {
		a.config.SetEnvPrefix(a.EnvPrefix)
		a.config.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		a.config.AutomaticEnv()
	}

	cmd := a.Command
	if cmd == nil {
		cmd = &cobra.Command{Use: "run", Short: "Run the application"}
	}
	cmd.Flags().String(cfgConfigFile, "", "Configuration file (TOML)")
	cmd.Flags().String("log.level", "", app.LogLevelUsage)
	cmd.Flags().String("log.format", "", "Console logging format (human|json)")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return a.executeCommand(cmd, args)
	}

	root.AddCommand(
		cmd,
		newSample(a.TOMLConfig),
		newVersion(shortName, a.Version),
		command.NewGendocs(),
	)
	return root
}

func (a *Application) executeCommand(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if err := a.config.BindPFlags(flags); err != nil {
		return serrors.Wrap("binding flags", err)
	}
	// The logging flags have short names but configure the [log.console]
	// block of the configuration file.
	for key, name := range map[string]string{
		cfgLogConsoleLevel:  "log.level",
		cfgLogConsoleFormat: "log.format",
	} {
		if err := bindFlag(a.config, key, flags.Lookup(name)); err != nil {
			return serrors.Wrap("binding flag", err, "flag", name)
		}
	}

	// Load launcher configurations from the same config file as the custom
	// application configuration.
	if file := a.config.GetString(cfgConfigFile); file != "" {
		a.config.SetConfigType("toml")
		a.config.SetConfigFile(file)
		if err := a.config.ReadInConfig(); err != nil {
			return app.WithExitCode(
				serrors.Wrap("loading generic config from file", err, "file", file), 2)
		}
		if err := libconfig.LoadFile(file, a.TOMLConfig); err != nil {
			return app.WithExitCode(serrors.Wrap("loading config from file", err), 2)
		}
	}
	a.TOMLConfig.InitDefaults()

	logEntriesTotal := metrics.ApplyOptions(a.registerer()).Auto().NewCounterVec(
		prometheus.CounterOpts{
			Name: "lib_log_emitted_entries_total",
			Help: "Total number of log entries emitted.",
		},
		[]string{prom.LabelLevel},
	)
	opt := log.WithEntriesCounter(log.EntriesCounter{
		Debug: logEntriesTotal.With(prometheus.Labels{prom.LabelLevel: "debug"}),
		Info:  logEntriesTotal.With(prometheus.Labels{prom.LabelLevel: "info"}),
		Error: logEntriesTotal.With(prometheus.Labels{prom.LabelLevel: "error"}),
	})
	if err := log.Setup(a.getLogging(), opt); err != nil {
		return app.WithExitCode(serrors.Wrap("initialize logging", err), 2)
	}
	defer log.Flush()
	defer log.HandlePanic()

	if err := a.TOMLConfig.Validate(); err != nil {
		return app.WithExitCode(serrors.Wrap("validate config", err), 2)
	}
	if a.Main == nil {
		return nil
	}
	return a.Main(cmd.Context(), a.config, args)
}

// bindFlag binds the flag to a key that differs from the flag name.
func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) error {
	if flag == nil {
		return serrors.New("flag not defined", "key", key)
	}
	return v.BindPFlag(key, flag)
}

func (a *Application) registerer() metrics.Option {
	if a.Registerer == nil {
		return metrics.WithRegistry(prometheus.DefaultRegisterer)
	}
	return metrics.WithRegistry(a.Registerer)
}

func (a *Application) getLogging() log.Config {
	return log.Config{
		Console: log.ConsoleConfig{
			Level:           a.config.GetString(cfgLogConsoleLevel),
			Format:          a.config.GetString(cfgLogConsoleFormat),
			StacktraceLevel: a.config.GetString(cfgLogConsoleStacktraceLevel),
		},
	}
}

func (a *Application) getErrorWriter() io.Writer {
	if a.ErrorWriter != nil {
		return a.ErrorWriter
	}
	return os.Stderr
}

func newSample(cfg libconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Display a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			libconfig.WriteSample(cmd.OutOrStdout(), nil, nil, cfg)
			return nil
		},
	}
}

func newVersion(shortName, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := version
			if v == "" {
				v = "(devel)"
				if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
					v = info.Main.Version
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n  Version: %s\n  Go version: %s\n",
				shortName, v, runtime.Version())
			return nil
		},
	}
}
