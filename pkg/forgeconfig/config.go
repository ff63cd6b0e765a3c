// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package forgeconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"forge.build/x/forge/pkg/forgeversion"
	"forge.build/x/forge/pkg/utils"
	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
)

type Config struct {
	ForgeHomePath string `yaml:"-"`

	// dir containing the content-addressed component store
	ComponentCachePath string `yaml:"-"`
	InstallLockPath    string `yaml:"-"`

	// APIVersion is the component-API version this binary declares when
	// checking manifests' compatibility ranges
	APIVersion string `yaml:"api-version,omitempty"`

	Registry         string `yaml:"registry,omitempty"`
	RegistryAuthPath string `yaml:"registry-auth-path,omitempty"`
	Insecure         bool   `yaml:"insecure,omitempty"`
}

func (c *Config) EnsureDirs() error {
	return utils.EnsureDirs(c.ForgeHomePath, c.ComponentCachePath)
}

// SemAPIVersion parses the configured component-API version.
func (c *Config) SemAPIVersion() (*semver.Version, error) {
	v, err := semver.NewVersion(c.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("configured api-version %q is not a semantic version: %w", c.APIVersion, err)
	}
	return v, nil
}

func Get() (*Config, error) {
	forgeHomePath, err := getForgeHomePath()
	if err != nil {
		return nil, err
	}
	return GetWithCustomHome(forgeHomePath)
}

func GetWithCustomHome(forgeHomePath string) (*Config, error) {
	config := Config{}

	// forge-config.yaml is optional
	configFilePath := filepath.Join(forgeHomePath, ForgeConfigFileName)
	fileInfo, err := os.Stat(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		if fileInfo.IsDir() {
			return nil, fmt.Errorf("%q is directory and not a file", configFilePath)
		}

		bytes, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, err
		}

		if err := yaml.Unmarshal(bytes, &config); err != nil {
			return nil, err
		}
	}

	if registry, ok := os.LookupEnv(RegistryEnvVar); ok {
		config.Registry = registry
	}
	if config.Registry == "" {
		config.Registry = DefaultRegistry
	}

	if registryAuthPath, ok := os.LookupEnv(RegistryAuthPathEnvVar); ok {
		config.RegistryAuthPath = registryAuthPath
	}

	insecure, ok, err := utils.BoolEnvVar(AllowInsecureRegistryEnvVar)
	if err != nil {
		return nil, err
	}
	if ok {
		config.Insecure = insecure
	}

	if apiVersion, ok := os.LookupEnv(APIVersionEnvVar); ok {
		config.APIVersion = apiVersion
	}
	if config.APIVersion == "" {
		config.APIVersion = DefaultAPIVersion
	}
	if _, err := semver.NewVersion(config.APIVersion); err != nil {
		return nil, fmt.Errorf("api-version %q is not a semantic version: %w", config.APIVersion, err)
	}

	cacheDir := filepath.Join(forgeHomePath, "cache")
	config.ForgeHomePath = forgeHomePath
	config.ComponentCachePath = filepath.Join(cacheDir, "components")
	config.InstallLockPath = filepath.Join(cacheDir, ".lock")
	return &config, nil
}

func getForgeHomePath() (string, error) {
	if v, ok := os.LookupEnv(ForgeHomeEnvVar); ok {
		return v, nil
	}

	return getAppUserDataDirectory("forge")
}

func getAppUserDataDirectory(appName string) (string, error) {
	switch runtime.GOOS {
	case "windows":
		dir, ok := os.LookupEnv("APPDATA")
		if !ok {
			return "", fmt.Errorf("APPDATA environment variable is not set")
		}
		return filepath.Join(dir, appName), nil
	default:
		dir, ok := os.LookupEnv("HOME")
		if !ok {
			return "", fmt.Errorf("HOME environment variable is not set")
		}
		return filepath.Join(dir, "."+appName), nil
	}
}

// GetProjectDir is the directory holding the project's forge-lock.yaml:
// FORGE_PROJECT when set, the working directory otherwise.
func GetProjectDir() (string, error) {
	if v, ok := os.LookupEnv(ProjectEnvVar); ok {
		return v, nil
	}
	return os.Getwd()
}

func GetUserAgent() string {
	return fmt.Sprintf("%s/%s", ForgeUserAgentPrefix, forgeversion.GetForgeVersion())
}
