// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/schema"
	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

var (
	ErrInvalidManifest      = fmt.Errorf("invalid component manifest")
	ErrMissingManifestField = fmt.Errorf("%w: a required field is missing", ErrInvalidManifest)
	ErrManifestNotFound     = errors.New("component manifest not found")
)

const (
	ManifestKind          = "Component"
	ManifestSchemaVersion = "v1"
	ManifestAPIVersion    = schema.APIGroup + "/" + ManifestSchemaVersion

	// Filename is the manifest's well-known name at a component's root.
	Filename = "component.yaml"
)

type Manifest struct {
	schema.ManifestMeta `yaml:",inline"`

	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`

	// Dependencies maps a component reference to its version constraint.
	// An empty constraint means "any version".
	Dependencies map[string]string `yaml:"dependencies,omitempty"`

	Provides      Provides       `yaml:"provides,omitempty"`
	Compatibility *Compatibility `yaml:"compatibility"`
}

type Provides struct {
	Templates []string `yaml:"templates,omitempty"`
	Assets    []string `yaml:"assets,omitempty"`
	Hooks     []string `yaml:"hooks,omitempty"`
}

// Compatibility declares the closed interval of component-API versions this
// component works against.
type Compatibility struct {
	APIVersion string `yaml:"api-version"`
	MinVersion string `yaml:"min-version"`
	MaxVersion string `yaml:"max-version"`
}

func Read(filePath string) (*Manifest, error) {
	bytes, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, filePath)
		}
		return nil, err
	}
	return ReadContents(bytes)
}

func ReadContents(contents []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(contents, &m, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrInvalidManifest, err)
	}

	s := schema.ManifestMeta{
		APIVersion: ManifestAPIVersion,
		Kind:       ManifestKind,
	}
	if err := s.ValidateSchema(m.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, err.Error())
	}

	if m.Name == "" {
		return nil, fmt.Errorf("%w: 'name'", ErrMissingManifestField)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("%w: 'version'", ErrMissingManifestField)
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return nil, fmt.Errorf("%w: version %q is not a semantic version: %s", ErrInvalidManifest, m.Version, err.Error())
	}
	if m.Compatibility == nil {
		return nil, fmt.Errorf("%w: 'compatibility'", ErrMissingManifestField)
	}

	return &m, nil
}

// SemVersion returns the manifest's own version. ReadContents guarantees it
// parses, so failures here indicate a hand-constructed Manifest.
func (m *Manifest) SemVersion() (*semver.Version, error) {
	return semver.NewVersion(m.Version)
}

// DeclaredDependencies parses the dependencies mapping into locators. Map
// iteration order is not stable, but dependency edge order must be, so the
// references are sorted first. The mapping value, when present, becomes the
// locator's version constraint.
func (m *Manifest) DeclaredDependencies() ([]*locator.Locator, error) {
	refs := lo.Keys(m.Dependencies)
	slices.Sort(refs)

	locs := make([]*locator.Locator, 0, len(refs))
	for _, ref := range refs {
		loc, err := locator.Parse(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: dependency %q: %s", ErrInvalidManifest, ref, err.Error())
		}
		if constraint := m.Dependencies[ref]; constraint != "" {
			loc = loc.WithVersion(constraint)
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
