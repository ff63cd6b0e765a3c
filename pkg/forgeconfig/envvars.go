// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package forgeconfig

const envVarPrefix = "FORGE_"

const (
	// ForgeHomeEnvVar
	// FORGE_HOME is the absolute path to the `forge` home directory
	ForgeHomeEnvVar = envVarPrefix + "HOME"

	// RegistryEnvVar
	// FORGE_REGISTRY overrides the component registry host components are downloaded from
	RegistryEnvVar = envVarPrefix + "REGISTRY"

	// RegistryAuthPathEnvVar
	// FORGE_REGISTRY_AUTH overrides the netrc file used to authenticate against the registry
	// 	default: $HOME/.netrc
	RegistryAuthPathEnvVar = envVarPrefix + "REGISTRY_AUTH"

	// AllowInsecureRegistryEnvVar
	// FORGE_INSECURE_REGISTRY allows an insecure registry to be used (http instead of https, and without auth)
	AllowInsecureRegistryEnvVar = envVarPrefix + "INSECURE_REGISTRY"

	// LogLevelEnvVar
	// FORGE_LOG_LEVEL sets the log level.
	// 	Default: info
	//  Possible values: info error warning fatal debug
	LogLevelEnvVar = envVarPrefix + "LOG_LEVEL"

	// APIVersionEnvVar
	// FORGE_API_VERSION overrides the component-API version this binary
	// declares when checking a component's compatibility range
	APIVersionEnvVar = envVarPrefix + "API_VERSION"

	// ProjectEnvVar
	// FORGE_PROJECT is a path to a project directory.
	// This allows running a command in a project without changing directory
	ProjectEnvVar = envVarPrefix + "PROJECT"
)
