// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	checkCmd "forge.build/x/forge/cmd/forge/cmd/check"
	getCmd "forge.build/x/forge/cmd/forge/cmd/get"
	installCmd "forge.build/x/forge/cmd/forge/cmd/install"
	lockCmd "forge.build/x/forge/cmd/forge/cmd/lock"
	packCmd "forge.build/x/forge/cmd/forge/cmd/pack"
	versionsCmd "forge.build/x/forge/cmd/forge/cmd/versions"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/forgeversion"
	"forge.build/x/forge/pkg/logging"
	"github.com/spf13/cobra"
)

const ForgeName = "forge"

func RootCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   ForgeName,
		Short: "assemble projects from reusable, versioned components",
	}

	if err := logging.InitLogging(); err != nil {
		return nil, err
	}

	config, err := forgeconfig.Get()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cmd.AddCommand(
		installCmd.Cmd(config),
		getCmd.Cmd(config),
		checkCmd.Cmd(config),
		versionsCmd.Cmd(config),
		lockCmd.Cmd(config),
		packCmd.Cmd(),
	)

	info := forgeversion.Get()
	cmd.Version = fmt.Sprintf("%s %s (build %s, component-api %s)", ForgeName, info.Version, info.Build, config.APIVersion)
	cmd.SetVersionTemplate("{{.Version}}\n")

	return cmd, nil
}
