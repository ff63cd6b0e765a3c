// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package forgeconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the variable for the test while keeping t.Setenv's cleanup.
func clearEnv(t *testing.T, keys ...string) {
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestGetWithCustomHomeDefaults(t *testing.T) {
	clearEnv(t, RegistryEnvVar, RegistryAuthPathEnvVar, AllowInsecureRegistryEnvVar, APIVersionEnvVar)
	home := t.TempDir()

	config, err := GetWithCustomHome(home)
	require.NoError(t, err)

	assert.Equal(t, DefaultRegistry, config.Registry)
	assert.Equal(t, DefaultAPIVersion, config.APIVersion)
	assert.False(t, config.Insecure)
	assert.Equal(t, home, config.ForgeHomePath)
	assert.Equal(t, filepath.Join(home, "cache", "components"), config.ComponentCachePath)
	assert.Equal(t, filepath.Join(home, "cache", ".lock"), config.InstallLockPath)

	v, err := config.SemAPIVersion()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIVersion, v.String())
}

func TestGetWithCustomHomeConfigFile(t *testing.T) {
	clearEnv(t, RegistryEnvVar, RegistryAuthPathEnvVar, AllowInsecureRegistryEnvVar, APIVersionEnvVar)
	home := t.TempDir()

	contents := "registry: registry.internal.example.com\napi-version: 0.1.0\ninsecure: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ForgeConfigFileName), []byte(contents), 0644))

	config, err := GetWithCustomHome(home)
	require.NoError(t, err)
	assert.Equal(t, "registry.internal.example.com", config.Registry)
	assert.Equal(t, "0.1.0", config.APIVersion)
	assert.True(t, config.Insecure)
}

func TestEnvOverridesConfigFile(t *testing.T) {
	clearEnv(t, RegistryAuthPathEnvVar, AllowInsecureRegistryEnvVar)
	home := t.TempDir()

	contents := "registry: registry.internal.example.com\napi-version: 0.1.0\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ForgeConfigFileName), []byte(contents), 0644))

	t.Setenv(RegistryEnvVar, "registry.override.example.com")
	t.Setenv(APIVersionEnvVar, "0.2.0")

	config, err := GetWithCustomHome(home)
	require.NoError(t, err)
	assert.Equal(t, "registry.override.example.com", config.Registry)
	assert.Equal(t, "0.2.0", config.APIVersion)
}

func TestRejectsNonSemverAPIVersion(t *testing.T) {
	clearEnv(t, RegistryEnvVar, RegistryAuthPathEnvVar, AllowInsecureRegistryEnvVar)
	t.Setenv(APIVersionEnvVar, "not-a-version")

	_, err := GetWithCustomHome(t.TempDir())
	assert.Error(t, err)
}

func TestRejectsMalformedInsecureFlag(t *testing.T) {
	clearEnv(t, RegistryEnvVar, RegistryAuthPathEnvVar, APIVersionEnvVar)
	t.Setenv(AllowInsecureRegistryEnvVar, "maybe")

	_, err := GetWithCustomHome(t.TempDir())
	assert.Error(t, err)
}

func TestGetProjectDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(ProjectEnvVar, dir)

	got, err := GetProjectDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}
