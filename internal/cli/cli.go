package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vk/gridlink/internal/app"
)

// Version is the gridlink release, overridden at build time.
var Version = "0.1.0"

// Commands that run the application.
const (
	CommandResolve = "resolve"
	CommandBundles = "bundles"
)

// Configuration keys shared by flags, the config file and the environment.
const (
	keyBundles         = "bundles"
	keyRoot            = "root"
	keyCoreVersion     = "core_version"
	keyLogLevel        = "log_level"
	keyLogFormat       = "log_format"
	keyOutput          = "output"
	keySpecCacheSize   = "spec_cache_size"
	keyLoadConcurrency = "load_concurrency"
)

// envPrefix prefixes environment overrides, e.g. GRIDLINK_LOG_LEVEL.
const envPrefix = "GRIDLINK"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Invocation is what the command line asked the application to do.
type Invocation struct {
	Command string
	Config  *app.Config
}

// Parse processes command-line arguments. It returns the invocation, a
// boolean indicating if the program should exit cleanly (help, version),
// or an ExitError with code 2 for usage errors.
func Parse(args []string, output io.Writer) (*Invocation, bool, error) {
	slog.Debug("CLI parser started.")

	var inv *Invocation
	v := viper.New()
	root := newRootCmd(v, output, &inv)
	root.SetArgs(args)
	root.SetOut(output)
	root.SetErr(output)

	if err := root.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if inv == nil {
		slog.Debug("No command to run, exiting.")
		return nil, true, nil
	}

	slog.Debug("CLI parser finished successfully.", "command", inv.Command)
	return inv, false, nil
}

func newRootCmd(v *viper.Viper, output io.Writer, inv **Invocation) *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "gridlink",
		Short: "Resolves plugin bundles and links configurations against them.",
		Long: `gridlink orders and verifies bundles of processors and blocks, then
links declarations in HCL configurations against their specifications and
infers the types of pipeline outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfigFile(v, configFile)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a gridlink.yaml (default: ./gridlink.yaml if present).")
	flags.StringSliceP("bundles", "b", []string{"modules"}, "Bundle collection directories.")
	flags.String("root", "", "Root bundle id; only its closure is visible. Empty means all bundles.")
	flags.String("core-version", app.CoreVersion, "Platform version bundles are checked against. Empty disables the check.")
	flags.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringP("output", "o", "yaml", "Report format. Options: 'yaml' or 'json'.")
	flags.Int("spec-cache-size", 0, "Maximum number of cached specification name lookups. 0 uses the default.")
	flags.Int("load-concurrency", 4, "Number of bundle descriptors loaded in parallel. 0 is unlimited.")

	for key, flag := range map[string]string{
		keyBundles:         "bundles",
		keyRoot:            "root",
		keyCoreVersion:     "core-version",
		keyLogLevel:        "log-level",
		keyLogFormat:       "log-format",
		keyOutput:          "output",
		keySpecCacheSize:   "spec-cache-size",
		keyLoadConcurrency: "load-concurrency",
	} {
		// Lookup cannot fail for flags defined above.
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	root.AddCommand(
		newRunCmd(v, inv, CommandResolve, "resolve [CONFIG_PATH...]",
			"Resolve bundles and link the given configuration files or directories."),
		newRunCmd(v, inv, CommandBundles, "bundles",
			"Print the bundle load order and the visible closure."),
		&cobra.Command{
			Use:   "version",
			Short: "Print the gridlink version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(output, "gridlink %s (core %s)\n", Version, app.CoreVersion)
			},
		},
	)
	return root
}

func newRunCmd(v *viper.Viper, inv **Invocation, name, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.NewConfig(app.Config{
				Bundles:         v.GetStringSlice(keyBundles),
				Root:            v.GetString(keyRoot),
				CoreVersion:     v.GetString(keyCoreVersion),
				ConfigPaths:     args,
				LogLevel:        strings.ToLower(v.GetString(keyLogLevel)),
				LogFormat:       strings.ToLower(v.GetString(keyLogFormat)),
				Output:          strings.ToLower(v.GetString(keyOutput)),
				SpecCacheSize:   v.GetInt(keySpecCacheSize),
				LoadConcurrency: v.GetInt(keyLoadConcurrency),
			})
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			*inv = &Invocation{Command: name, Config: cfg}
			return nil
		},
	}
	if name == CommandBundles {
		cmd.Args = cobra.NoArgs
	}
	return cmd
}

// loadConfigFile reads an explicit config file, or gridlink.yaml from the
// working directory when it exists.
func loadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gridlink")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return &ExitError{Code: 2, Message: fmt.Sprintf("failed to read config file: %v", err)}
	}
	slog.Debug("Config file loaded.", "path", v.ConfigFileUsed())
	return nil
}
