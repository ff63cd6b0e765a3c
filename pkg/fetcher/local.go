// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"fmt"
	"os"
	"path/filepath"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"forge.build/x/forge/pkg/utils"
	"github.com/Masterminds/semver/v3"
)

// The path scheme points at a component directory; the file scheme points at
// a component.tar.gz archive on disk. Neither involves the network, and
// neither carries an expected digest: the filesystem's current state is
// trusted as-is.

func (f *Fetcher) fetchLocalComponent(loc *locator.Locator) (*component.Component, error) {
	switch loc.Scheme {
	case locator.Path:
		root := loc.Path
		if loc.Subpath != "" {
			root = filepath.Join(root, filepath.FromSlash(loc.Subpath))
		}
		ok, err := utils.DirExists(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, loc.String())
		}

		files, err := component.ReadFileSet(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
		}
		return componentFromFiles(loc, files)

	case locator.File:
		data, err := os.ReadFile(loc.Path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, loc.String())
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
		}

		files, err := UnpackArchive(data, loc.Subpath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrFetch, loc.String(), err.Error())
		}
		return componentFromFiles(loc, files)
	}
	return nil, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
}

func (f *Fetcher) fetchLocalManifest(loc *locator.Locator) (*manifest.Manifest, error) {
	if loc.Scheme == locator.Path {
		root := loc.Path
		if loc.Subpath != "" {
			root = filepath.Join(root, filepath.FromSlash(loc.Subpath))
		}
		return manifest.Read(filepath.Join(root, manifest.Filename))
	}

	// file scheme: the manifest travels inside the archive
	c, err := f.fetchLocalComponent(loc)
	if err != nil {
		return nil, err
	}
	return c.Manifest, nil
}

// localAvailableVersions: a local component offers exactly the version its
// manifest declares.
func (f *Fetcher) localAvailableVersions(loc *locator.Locator) ([]*semver.Version, error) {
	m, err := f.fetchLocalManifest(loc)
	if err != nil {
		return nil, err
	}
	v, err := m.SemVersion()
	if err != nil {
		return nil, err
	}
	return []*semver.Version{v}, nil
}

func (f *Fetcher) localCheckAvailability(loc *locator.Locator) (bool, error) {
	switch loc.Scheme {
	case locator.Path:
		root := loc.Path
		if loc.Subpath != "" {
			root = filepath.Join(root, filepath.FromSlash(loc.Subpath))
		}
		return utils.FileExists(filepath.Join(root, manifest.Filename))
	case locator.File:
		return utils.FileExists(loc.Path)
	}
	return false, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
}
