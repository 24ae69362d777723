// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litecompat CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litecompat/internal/convert"
	"github.com/pdiddy/litecompat/internal/ledger"
	"github.com/pdiddy/litecompat/internal/logger"
	"github.com/pdiddy/litecompat/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const rule = "============================================================"

// newConverter builds the converter backend. Tests replace it.
var newConverter = convert.NewConverter

// closeLog flushes the log file opened by the root command.
var closeLog = func() error { return nil }

// rootCmd is the base command for the litecompat CLI.
var rootCmd = &cobra.Command{
	Use:   "litecompat",
	Short: "Re-export TensorFlow models as TFLite files older runtimes can load",
	Long: `litecompat drives the TensorFlow Lite converter to re-export Keras and
SavedModel models with flags that aim for operator versions an older mobile
runtime accepts (FULLY_CONNECTED v11 rather than v12), and inspects the
operator versions inside .tflite files.

The converter runs out of process, either with a local Python interpreter that
has TensorFlow installed or inside a TensorFlow container image.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cleanup, err := logger.Setup(logger.Config{Dir: cfg.Log.Dir, Debug: cfg.Log.Debug})
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
			return nil
		}
		closeLog = cleanup
		logger.L().Info("command.start", "command", cmd.CommandPath(), "args", args, "version", version)
		announceLog(cmd.ErrOrStderr(), cfg.Log.Debug)
		return nil
	},
}

// announceLog prints where the structured log goes when debugging.
func announceLog(w io.Writer, debug bool) {
	if !debug || logger.IsReady() != nil {
		return
	}
	fmt.Fprintf(w, "debug: logging to %s\n", logger.Path())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litecompat.yaml or ~/.config/litecompat/litecompat.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "log at debug level and print the log file path")
	_ = viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litecompat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litecompat"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("LITECOMPAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every configuration key so environment variables
// can override keys absent from the config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("converter.backend", string(types.BackendPython))
	v.SetDefault("converter.python_bin", convert.DefaultPythonBin)
	v.SetDefault("converter.image", convert.DefaultImage)
	v.SetDefault("converter.runtime", string(types.RuntimeAuto))
	v.SetDefault("export.model_dir", "model")
	v.SetDefault("fix.output", "model/model_quant_fixed.tflite")
	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", ledger.DefaultPath)
	v.SetDefault("log.dir", logger.DefaultDir)
	v.SetDefault("log.debug", false)
}

// loadConfig decodes the merged configuration.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

// openLedger returns the run ledger as a recorder, or nil when the ledger is
// disabled or cannot be opened. A broken ledger never stops a conversion.
func openLedger(cfg types.LedgerConfig) (convert.Recorder, func()) {
	if !cfg.Enabled {
		return nil, func() {}
	}
	store, err := ledger.NewStore(cfg.Path)
	if err != nil {
		logger.L().Warn("ledger.open_failed", "path", cfg.Path, "error", err)
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

func main() {
	err := rootCmd.Execute()
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}
