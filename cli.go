package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"quicklaunch/internal/config"
	"quicklaunch/internal/inject"
	"quicklaunch/internal/ipc"
	"quicklaunch/internal/launcher"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	appName     = "quicklaunch"
	envFileName = "launcher.env"

	envStartHidden  = "QUICKLAUNCH_START_HIDDEN"
	envPopupDelay   = "QUICKLAUNCH_POPUP_DELAY"
	envInjector     = "QUICKLAUNCH_INJECTOR"
	envHelper       = "QUICKLAUNCH_HELPER"
	envInjectorArgs = "QUICKLAUNCH_INJECTOR_ARGS"
	envKeyDelay     = "QUICKLAUNCH_KEY_DELAY"
	envVerbose      = "QUICKLAUNCH_VERBOSE"
)

// cliOptions holds the parsed command line.
type cliOptions struct {
	popup        bool
	startHidden  bool
	popupDelayMS int
	injector     string
	helper       string
	injectorArgs []string
	keyDelayMS   int
	verbose      bool
	configPath   string
}

// Test seams.
var (
	runAppFn   = runApp
	sendIPCFn  = ipc.Send
	loadEnvFn  = godotenv.Load
	envFileDir = config.Dir
)

// loadEnvFile applies <config dir>/launcher.env. Variables already present in
// the environment win. A missing file is not an error.
func loadEnvFile() {
	path := filepath.Join(envFileDir(), envFileName)
	if err := loadEnvFn(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("[WARN-CONFIG] env file ignored", "path", path, "error", err)
	}
}

// defaultOptions returns flag defaults, overridden by QUICKLAUNCH_* variables.
func defaultOptions() (cliOptions, error) {
	opts := cliOptions{
		popupDelayMS: int(launcher.DefaultRevealDelay / time.Millisecond),
		injector:     string(inject.KindDirect),
		helper:       inject.DefaultHelper,
		keyDelayMS:   int(inject.DefaultKeyDelay / time.Millisecond),
	}
	var errs []error
	if v, ok := lookupEnv(envStartHidden); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError(envStartHidden, err))
		opts.startHidden = b
	}
	if v, ok := lookupEnv(envVerbose); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envError(envVerbose, err))
		opts.verbose = b
	}
	if v, ok := lookupEnv(envPopupDelay); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envError(envPopupDelay, err))
		if err == nil {
			opts.popupDelayMS = n
		}
	}
	if v, ok := lookupEnv(envKeyDelay); ok {
		n, err := strconv.Atoi(v)
		errs = append(errs, envError(envKeyDelay, err))
		if err == nil {
			opts.keyDelayMS = n
		}
	}
	if v, ok := lookupEnv(envInjector); ok {
		opts.injector = v
	}
	if v, ok := lookupEnv(envHelper); ok {
		opts.helper = v
	}
	if v, ok := lookupEnv(envInjectorArgs); ok {
		opts.injectorArgs = strings.Fields(v)
	}
	return opts, errors.Join(errs...)
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envError(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", name, err)
}

// settings converts the options into launcher settings and validates them.
func (o cliOptions) settings() (launcher.Settings, error) {
	kind, err := inject.ParseKind(o.injector)
	if err != nil {
		return launcher.Settings{}, err
	}
	s := launcher.DefaultSettings()
	s.SingleShot = o.popup
	s.StartHidden = o.startHidden
	s.RevealDelay = time.Duration(o.popupDelayMS) * time.Millisecond
	s.Injector = inject.Config{
		Kind:     kind,
		Helper:   o.helper,
		Args:     o.injectorArgs,
		KeyDelay: time.Duration(o.keyDelayMS) * time.Millisecond,
	}
	if err := s.Validate(); err != nil {
		return launcher.Settings{}, err
	}
	return s, nil
}

func (o cliOptions) storePath() string {
	if strings.TrimSpace(o.configPath) != "" {
		return o.configPath
	}
	return config.DefaultPath()
}

func newRootCmd() (*cobra.Command, error) {
	opts, envErr := defaultOptions()

	root := &cobra.Command{
		Use:           appName,
		Short:         "Global-hotkey launcher that types the chosen value into the focused window",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}
			return runAppFn(opts, settings)
		},
	}

	flags := root.Flags()
	flags.BoolVarP(&opts.popup, "popup", "p", false, "show the popup once, inject, and exit")
	flags.BoolVar(&opts.startHidden, "start-hidden", opts.startHidden, "start with no window visible ("+envStartHidden+")")
	flags.IntVar(&opts.popupDelayMS, "popup-delay", opts.popupDelayMS, "milliseconds between hiding the popup and typing ("+envPopupDelay+")")
	flags.StringVar(&opts.injector, "injector", opts.injector, "injection backend: direct or external ("+envInjector+")")
	flags.StringVar(&opts.helper, "helper", opts.helper, "external helper: "+strings.Join(inject.KnownHelpers(), ", ")+" ("+envHelper+")")
	flags.StringArrayVar(&opts.injectorArgs, "injector-arg", opts.injectorArgs, "replace the helper tuning flags; repeatable ("+envInjectorArgs+")")
	flags.IntVar(&opts.keyDelayMS, "key-delay", opts.keyDelayMS, "milliseconds between synthesized keys ("+envKeyDelay+")")

	persistent := root.PersistentFlags()
	persistent.BoolVarP(&opts.verbose, "verbose", "v", opts.verbose, "debug logging ("+envVerbose+")")
	persistent.StringVar(&opts.configPath, "config", "", "config file path")

	root.AddCommand(newActivateCmd(), newConfigCmd(&opts))
	return root, envErr
}

func newActivateCmd() *cobra.Command {
	names := make([]string, 0, len(ipc.Commands()))
	for _, c := range ipc.Commands() {
		names = append(names, string(c))
	}
	return &cobra.Command{
		Use:       "activate [command]",
		Short:     "Send a command to the running instance (default show-popup)",
		Long:      "Send a command to the running instance. Commands: " + strings.Join(names, ", "),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := ipc.CommandShowPopup
			if len(args) == 1 {
				parsed, err := ipc.ParseCommand(args[0])
				if err != nil {
					return err
				}
				command = parsed
			}
			if _, err := sendIPCFn(ipc.DefaultEndpoint(), command); err != nil {
				if ipc.IsConnectionError(err) {
					return fmt.Errorf("no running instance: %w", err)
				}
				return err
			}
			return nil
		},
	}
}

func newConfigCmd(opts *cliOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the hotkey configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), opts.storePath())
			return err
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective hotkey as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printConfig(cmd.OutOrStdout(), opts.storePath())
		},
	})
	return configCmd
}

// printConfig writes the effective binding. A broken file prints the default
// after reporting the parse error on the log.
func printConfig(w io.Writer, path string) error {
	binding, err := config.Load(path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config unreadable, showing default", "path", path, "error", err)
	}
	data, err := config.Encode(binding)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
