// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"context"
	"fmt"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/integrity"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"github.com/Masterminds/semver/v3"
)

var (
	ErrFetch             = fmt.Errorf("component fetch failure")
	ErrComponentNotFound = fmt.Errorf("%w: component not found", ErrFetch)
)

// FetchFailedError is a registry response outside the 2xx range.
type FetchFailedError struct {
	Locator string
	Status  int
}

func (e *FetchFailedError) Error() string {
	return fmt.Sprintf("%s: %s: unexpected registry status %d", ErrFetch.Error(), e.Locator, e.Status)
}

func (e *FetchFailedError) Unwrap() error {
	return ErrFetch
}

// Fetcher retrieves manifests and component content, dispatching on the
// locator's scheme. Remote content is digest-stamped through the integrity
// verifier before it leaves this package; local content carries no expected
// digest (the filesystem's current state is trusted) but is still stamped
// for cache and lockfile bookkeeping.
type Fetcher struct {
	config   *forgeconfig.Config
	registry *registryClient
}

func New(config *forgeconfig.Config) *Fetcher {
	return &Fetcher{
		config:   config,
		registry: newRegistryClient(config),
	}
}

// FetchManifest retrieves only the component's descriptor.
func (f *Fetcher) FetchManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error) {
	switch loc.Scheme {
	case locator.Registry:
		return f.registry.fetchManifest(ctx, loc)
	case locator.Git, locator.GitHub, locator.GitLab:
		return f.fetchGitManifest(ctx, loc)
	case locator.Path, locator.File:
		return f.fetchLocalManifest(loc)
	}
	return nil, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
}

// FetchComponent retrieves the full file set. The returned component is
// digest-stamped but not yet checked against any recorded digest; that is
// the caller's job since only it knows what the lockfile recorded.
func (f *Fetcher) FetchComponent(ctx context.Context, loc *locator.Locator) (*component.Component, error) {
	var (
		c   *component.Component
		err error
	)
	switch loc.Scheme {
	case locator.Registry:
		c, err = f.registry.fetchComponent(ctx, loc)
	case locator.Git, locator.GitHub, locator.GitLab:
		c, err = f.fetchGitComponent(ctx, loc)
	case locator.Path, locator.File:
		c, err = f.fetchLocalComponent(loc)
	default:
		return nil, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
	}
	if err != nil {
		return nil, err
	}

	c.Digest = integrity.Digest(c)
	return c, nil
}

// AvailableVersions lists the concrete versions a locator's source offers:
// the registry's published index, a git remote's semver tags, or a local
// component's own manifest version. Non-semver tags are skipped. The result
// is sorted ascending.
func (f *Fetcher) AvailableVersions(ctx context.Context, loc *locator.Locator) ([]*semver.Version, error) {
	switch loc.Scheme {
	case locator.Registry:
		return f.registry.availableVersions(ctx, loc)
	case locator.Git, locator.GitHub, locator.GitLab:
		return f.gitAvailableVersions(ctx, loc)
	case locator.Path, locator.File:
		return f.localAvailableVersions(loc)
	}
	return nil, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
}

// CheckAvailability is the cheapest existence probe for the scheme: HEAD for
// the registry, a remote ref listing for git, a stat for local schemes. A
// negative result is (false, nil); only genuine I/O failure returns an error.
func (f *Fetcher) CheckAvailability(ctx context.Context, loc *locator.Locator) (bool, error) {
	switch loc.Scheme {
	case locator.Registry:
		return f.registry.checkAvailability(ctx, loc)
	case locator.Git, locator.GitHub, locator.GitLab:
		return f.gitCheckAvailability(ctx, loc)
	case locator.Path, locator.File:
		return f.localCheckAvailability(loc)
	}
	return false, fmt.Errorf("%w: %q", locator.ErrUnknownScheme, loc.Scheme.String())
}

// componentFromFiles assembles a Component around the manifest found at the
// file set's root.
func componentFromFiles(loc *locator.Locator, files []component.File) (*component.Component, error) {
	c := &component.Component{Files: files}
	c.SortFiles()

	mf, ok := c.Lookup(manifest.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", manifest.ErrManifestNotFound, loc.String(), manifest.Filename)
	}
	m, err := manifest.ReadContents(mf.Data)
	if err != nil {
		return nil, err
	}
	c.Manifest = m
	return c, nil
}
