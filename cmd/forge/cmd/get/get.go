// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package get

import (
	"fmt"

	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/installer"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/lockfile"
	"github.com/spf13/cobra"
)

func Cmd(config *forgeconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <locator>",
		Short: "look a component up in the local cache (no network)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			loc, err := locator.Parse(args[0])
			if err != nil {
				return err
			}

			projectDir, err := forgeconfig.GetProjectDir()
			if err != nil {
				return err
			}
			system, err := installer.FromConfig(config, projectDir, lockfile.CheckOnly)
			if err != nil {
				return err
			}

			c, ok, err := system.Get(cmd.Context(), loc)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s is not cached; run 'forge install %s' first", loc.String(), loc.String())
			}

			cmd.Printf("%s %s\n", c.Manifest.Name, c.Manifest.Version)
			cmd.Printf("digest: %s\n", c.Digest)
			for _, f := range c.Files {
				cmd.Printf("  %s (%d bytes)\n", f.Path, len(f.Data))
			}
			return nil
		},
	}
	return cmd
}
