// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litecompat/internal/convert"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of litecompat",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "litecompat %s\n", version)

		withConverter, _ := cmd.Flags().GetBool("converter")
		if !withConverter {
			return nil
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		conv, err := newConverter(cfg.Converter, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		v, err := conv.Version()
		if err != nil {
			return err
		}
		convert.PrintVersion(cmd.OutOrStdout(), conv.Name(), v)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("converter", false, "also report the TensorFlow version of the configured converter backend")

	rootCmd.AddCommand(versionCmd)
}
