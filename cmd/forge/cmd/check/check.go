// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package check

import (
	"forge.build/x/forge/pkg/fetcher"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/locator"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func Cmd(config *forgeconfig.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <locator>",
		Short: "probe whether a component's source answers, without fetching content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			loc, err := locator.Parse(args[0])
			if err != nil {
				return err
			}

			ok, err := fetcher.New(config).CheckAvailability(cmd.Context(), loc)
			if err != nil {
				return err
			}

			if ok {
				cmd.Println(color.GreenString("%s is available", loc.String()))
			} else {
				cmd.Println(color.RedString("%s is not available", loc.String()))
			}
			return nil
		},
	}
	return cmd
}
