// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package packager turns a local component directory into the
// component.tar.gz artifact that the file scheme and the registry's upload
// side consume.
package packager

import (
	"fmt"
	"os"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/fetcher"
	"forge.build/x/forge/pkg/integrity"
)

type Config struct {
	// Dir is the component root; it must hold a valid component.yaml.
	Dir string
	// Output overrides the default <name>-<version>.tar.gz destination.
	Output string
	// DryRun validates and reports without writing the archive.
	DryRun bool
}

// Result describes the produced artifact. Digest is the content digest of
// the packed file set, the same value an installer will verify after
// download.
type Result struct {
	Path    string
	Name    string
	Version string
	Digest  string
}

type Packager struct {
	config *Config
}

func New(config *Config) *Packager {
	return &Packager{config: config}
}

func (p *Packager) Pack() (*Result, error) {
	c, err := component.FromDir(p.config.Dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Name:    c.Manifest.Name,
		Version: c.Manifest.Version,
		Digest:  integrity.Digest(c),
		Path:    p.config.Output,
	}
	if result.Path == "" {
		result.Path = fmt.Sprintf("%s-%s.tar.gz", c.Manifest.Name, c.Manifest.Version)
	}

	if p.config.DryRun {
		return result, nil
	}

	archive, err := fetcher.PackArchive(c.Files)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(result.Path, archive, 0644); err != nil {
		return nil, err
	}
	return result, nil
}
