// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"forge.build/x/forge/pkg/fetcher"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/lockfile"
	"forge.build/x/forge/pkg/versions"
	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

func Cmd(config *forgeconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions <locator>",
		Short: "list a component's published versions and what the lockfile pins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmd.SilenceUsage = true

			loc, err := locator.Parse(args[0])
			if err != nil {
				return err
			}

			remote, err := fetcher.New(config).AvailableVersions(ctx, loc)
			if err != nil {
				return err
			}

			locked, err := lockedVersion(loc)
			if err != nil {
				return err
			}

			cmd.Println(versions.New(locked, nil, remote).Table())
			return nil
		},
	}
	return cmd
}

func lockedVersion(loc *locator.Locator) (*semver.Version, error) {
	projectDir, err := forgeconfig.GetProjectDir()
	if err != nil {
		return nil, err
	}

	lock, err := lockfile.NewLocker(projectDir, lockfile.CheckOnly).Load()
	if err != nil {
		return nil, err
	}

	entry, ok := lock.Lookup(loc.String())
	if !ok {
		return nil, nil
	}
	v, err := semver.NewVersion(entry.Version)
	if err != nil {
		// a recorded non-semver ref pin has no row in the table
		return nil, nil
	}
	return v, nil
}
