// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package install

import (
	"fmt"

	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/installer"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/lockfile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func Cmd(config *forgeconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <locator>...",
		Short: "resolve, fetch and cache components and their dependencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmd.SilenceUsage = true

			projectDir, err := forgeconfig.GetProjectDir()
			if err != nil {
				return err
			}
			system, err := installer.FromConfig(config, projectDir, lockfile.Regular)
			if err != nil {
				return err
			}

			for _, arg := range args {
				loc, err := locator.Parse(arg)
				if err != nil {
					return err
				}

				c, err := system.Install(ctx, loc)
				if err != nil {
					return fmt.Errorf("install %s: %w", loc.String(), err)
				}
				cmd.Println(color.GreenString("installed %s %s (%s)", c.Manifest.Name, c.Manifest.Version, c.Digest))
			}
			return nil
		},
	}
	return cmd
}
