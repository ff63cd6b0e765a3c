// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"forge.build/x/forge/pkg/packager"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	var output string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "pack <component-dir>",
		Short: "package a component directory into a component.tar.gz artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			result, err := packager.New(&packager.Config{
				Dir:    args[0],
				Output: output,
				DryRun: dryRun,
			}).Pack()
			if err != nil {
				return err
			}

			if dryRun {
				cmd.Println("Skipping archive write due to --dry-run")
			}
			cmd.Println(color.GreenString("packed %s %s -> %s (%s)",
				result.Name, result.Version, result.Path, result.Digest))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination archive path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate and report without writing the archive")
	return cmd
}
