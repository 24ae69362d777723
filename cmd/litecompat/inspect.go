// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litecompat/internal/inspect"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <model.tflite>",
	Short: "Report the operators and operator versions of a .tflite file",
	Long: `Inspect decodes a .tflite flatbuffer and lists each operator with its
version, the FULLY_CONNECTED versions, unique op counts and the input and
output tensors. No TensorFlow installation is needed.

With --target (or inspect.max_versions in the config file) every named
operator is checked against the highest version the target runtime supports,
and inspect exits with status 1 when any exceeds it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	inspectCmd.Flags().StringSlice("target", nil, "maximum operator version, as NAME=VERSION (repeatable), e.g. FULLY_CONNECTED=11")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	targets, _ := cmd.Flags().GetStringSlice("target")

	maxVersions, err := parseTargets(cfg.Inspect.MaxVersions, targets)
	if err != nil {
		return err
	}

	report, err := inspect.New(maxVersions).Inspect(args[0])
	if err != nil {
		return err
	}
	if err := inspect.WriteReport(cmd.OutOrStdout(), report, format); err != nil {
		return err
	}
	if !report.Compatible() {
		return fmt.Errorf("%s uses operator versions above the target", args[0])
	}
	return nil
}

// parseTargets merges NAME=VERSION flags over the configured limits.
func parseTargets(base map[string]int32, targets []string) (map[string]int32, error) {
	out := make(map[string]int32, len(base)+len(targets))
	for k, v := range base {
		out[strings.ToUpper(k)] = v
	}
	for _, t := range targets {
		name, ver, ok := strings.Cut(t, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid target %q: want NAME=VERSION", t)
		}
		n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(ver), "v"), 10, 32)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid target %q: version must be a positive integer", t)
		}
		out[strings.ToUpper(strings.TrimSpace(name))] = int32(n)
	}
	return out, nil
}
