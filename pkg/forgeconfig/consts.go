// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package forgeconfig

const (
	ForgeConfigFileName = "forge-config.yaml"
	ForgeLockFileName   = "forge-lock.yaml"

	DefaultRegistry = "registry.forge.build" // stable prod public registry as the default

	// DefaultAPIVersion is the component-API version this binary speaks.
	// Components declare a [min-version, max-version] range against it.
	DefaultAPIVersion = "0.2.0"

	ForgeUserAgentPrefix = "forge"
)
