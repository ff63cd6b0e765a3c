// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lock

import (
	"forge.build/x/forge/pkg/cache"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/integrity"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/lockfile"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func Cmd(config *forgeconfig.Config) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "lock",
		Short: "print the project's lockfile, or verify it against the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cmd.SilenceUsage = true

			projectDir, err := forgeconfig.GetProjectDir()
			if err != nil {
				return err
			}

			l, err := lockfile.NewLocker(projectDir, lockfile.CheckOnly).Load()
			if err != nil {
				return err
			}

			if !check {
				data, err := l.Marshal()
				if err != nil {
					return err
				}
				cmd.Print(string(data))
				return nil
			}

			store, err := cache.NewDirStore(config.ComponentCachePath)
			if err != nil {
				return err
			}

			for _, entry := range l.Components {
				loc, err := locator.Parse(entry.Locator)
				if err != nil {
					return err
				}

				cached, ok, err := store.Get(ctx, loc.CacheKey(entry.Version))
				if err != nil {
					return err
				}
				if ok && loc.Subpath != "" {
					// the cache holds the full version content; the entry
					// records the subpath view's digest
					sub, subErr := cached.Sub(loc.Subpath)
					if subErr != nil {
						ok = false
					} else {
						sub.Digest = integrity.Digest(sub)
						cached = sub
					}
				}
				if !ok || (entry.Digest != "" && cached.Digest != entry.Digest) {
					cmd.Println(color.RedString("%s is not satisfied by the local cache", entry.Locator))
					return lockfile.ErrLockfileOutOfSync
				}
			}

			cmd.Println(color.GreenString("lockfile is satisfied by the local cache (%d components)", len(l.Components)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "verify every locked component is cached with a matching digest")
	return cmd
}
