// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package installer composes locator parsing, resolution, fetching,
// integrity verification, caching and lockfile bookkeeping into the
// install/get/check surface the codegen pipeline consumes.
package installer

import (
	"context"
	"sync"

	"forge.build/x/forge/pkg/cache"
	"forge.build/x/forge/pkg/compat"
	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/fetcher"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/integrity"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/lockfile"
	"forge.build/x/forge/pkg/manifest"
	"forge.build/x/forge/pkg/resolver"
	"forge.build/x/forge/pkg/utils"
	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"
)

// Fetcher is the scheme-dispatched retrieval capability. fetcher.New
// satisfies it; tests substitute an in-memory graph.
type Fetcher interface {
	FetchManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error)
	FetchComponent(ctx context.Context, loc *locator.Locator) (*component.Component, error)
	AvailableVersions(ctx context.Context, loc *locator.Locator) ([]*semver.Version, error)
	CheckAvailability(ctx context.Context, loc *locator.Locator) (bool, error)
}

// System is the component acquisition orchestrator. Concurrent Install calls
// for the same canonical locator coalesce onto one in-flight install; the
// cache store's per-key file lock extends the same guarantee across
// processes.
type System struct {
	config  *forgeconfig.Config
	fetcher Fetcher
	store   cache.Store
	locker  *lockfile.Locker

	group singleflight.Group

	mu   sync.Mutex // guards lock below
	lock *lockfile.Lock
}

// FromConfig wires the production system: the scheme-dispatched fetcher, the
// on-disk component store under the forge home, and the project's lockfile.
func FromConfig(config *forgeconfig.Config, projectDir string, op lockfile.Operation) (*System, error) {
	store, err := cache.NewDirStore(config.ComponentCachePath)
	if err != nil {
		return nil, err
	}
	return New(config, fetcher.New(config), store, lockfile.NewLocker(projectDir, op))
}

func New(config *forgeconfig.Config, f Fetcher, store cache.Store, locker *lockfile.Locker) (*System, error) {
	lock, err := locker.Load()
	if err != nil {
		return nil, err
	}
	return &System{
		config:  config,
		fetcher: f,
		store:   store,
		locker:  locker,
		lock:    lock,
	}, nil
}

// Install fetches the locator's manifest, resolves its dependency graph,
// fetches, verifies and caches every resolved component (dependencies
// first), and records the result in the lockfile. Any stage failing aborts
// the whole install; nothing partial ever reaches the cache or the lockfile.
func (s *System) Install(ctx context.Context, loc *locator.Locator) (*component.Component, error) {
	canonical := loc.String()

	c, err, _ := s.group.Do(canonical, func() (interface{}, error) {
		if s.config.InstallLockPath == "" {
			return s.install(ctx, loc)
		}

		// one installing process at a time; concurrent forge invocations
		// queue up rather than race on the lockfile
		var installed *component.Component
		lockErr := utils.WithFileLock(ctx, s.config.InstallLockPath, func() error {
			var err error
			installed, err = s.install(ctx, loc)
			return err
		})
		return installed, lockErr
	})
	if err != nil {
		return nil, err
	}
	return c.(*component.Component), nil
}

func (s *System) install(ctx context.Context, loc *locator.Locator) (*component.Component, error) {
	canonical := loc.String()

	// reproducibility short-circuit: a recorded entry whose source still
	// answers and whose cached content still matches skips resolution
	if cached, ok, err := s.fromLock(ctx, loc); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	pinned, err := s.pinRoot(ctx, loc)
	if err != nil {
		return nil, err
	}

	root, err := s.fetcher.FetchManifest(ctx, pinned)
	if err != nil {
		return nil, err
	}
	if status := compat.Check(root, s.config.APIVersion); status != compat.Compatible {
		return nil, &resolver.IncompatibleComponentError{Locator: canonical, Status: status}
	}

	res := resolver.New(s.fetcher, s.config.APIVersion)
	solved, err := res.Resolve(ctx, root)
	if err != nil {
		return nil, err
	}

	// dependencies first, the requested component last
	for _, dep := range solved {
		if _, err := s.installOne(ctx, dep.Locator, dep.Version.Original(), ""); err != nil {
			return nil, err
		}
	}

	expectedDigest := ""
	s.mu.Lock()
	if entry, ok := s.lock.Lookup(canonical); ok {
		expectedDigest = entry.Digest
	}
	s.mu.Unlock()

	rootComponent, err := s.installOne(ctx, pinned, root.Version, expectedDigest)
	if err != nil {
		return nil, err
	}

	entry := &lockfile.Entry{
		Locator: canonical,
		Version: root.Version,
		Digest:  rootComponent.Digest,
	}
	for _, dep := range solved {
		entry.Dependencies = append(entry.Dependencies, dep.Locator.String())
	}
	if err := s.recordLock(entry); err != nil {
		return nil, err
	}

	return rootComponent, nil
}

// pinRoot resolves a root locator whose version is a semver constraint to
// the highest available version satisfying it, the same policy the resolver
// applies to dependency edges. Exact versions, non-semver ref pins and
// unversioned locators pass through unchanged.
func (s *System) pinRoot(ctx context.Context, loc *locator.Locator) (*locator.Locator, error) {
	if loc.Version == "" {
		return loc, nil
	}
	if _, err := semver.NewVersion(loc.Version); err == nil {
		return loc, nil
	}
	constraint, err := semver.NewConstraint(loc.Version)
	if err != nil {
		// a git branch or commit, fetched literally
		return loc, nil
	}

	candidates, err := s.fetcher.AvailableVersions(ctx, loc)
	if err != nil {
		return nil, err
	}
	// candidates are sorted ascending; scan from the top
	for i := len(candidates) - 1; i >= 0; i-- {
		if constraint.Check(candidates[i]) {
			return loc.WithVersion(candidates[i].Original()), nil
		}
	}
	return nil, &resolver.VersionConflictError{Component: loc.PathKey(), ConstraintA: loc.Version}
}

// installOne ensures the full content for (component path, resolvedVersion)
// is fetched, verified and cached, then returns the locator's view of it.
// The cache always holds the complete version content; a subpath is a view
// applied on the way out, never a separate entry, so two subpaths of one
// version share a single cache entry without serving each other's files.
// expectedDigest, when non-empty and the locator is remote, makes any
// disagreement with the returned view a hard integrity failure.
func (s *System) installOne(ctx context.Context, loc *locator.Locator, resolvedVersion, expectedDigest string) (*component.Component, error) {
	key := loc.CacheKey(resolvedVersion)

	// local content is trusted as the filesystem's current state; remote
	// content must match any digest recorded before
	if loc.IsLocal() {
		expectedDigest = ""
	}

	if full, ok, err := s.store.Get(ctx, key); err != nil {
		return nil, err
	} else if ok {
		c, err := view(full, loc)
		if err != nil {
			return nil, err
		}
		if expectedDigest != "" && c.Digest != expectedDigest {
			return nil, &integrity.DigestMismatchError{Expected: expectedDigest, Actual: c.Digest}
		}
		return c, nil
	}

	full, err := s.fetcher.FetchComponent(ctx, loc.WithSubpath(""))
	if err != nil {
		return nil, err
	}
	c, err := view(full, loc)
	if err != nil {
		return nil, err
	}
	if err := integrity.Verify(c, expectedDigest); err != nil {
		return nil, err
	}

	// store only after verification succeeded
	if err := s.store.Put(ctx, key, full); err != nil {
		return nil, err
	}
	return c, nil
}

// view narrows full version content to the locator's subpath. The view
// carries its own digest; that is what the lockfile records for a subpath
// locator.
func view(full *component.Component, loc *locator.Locator) (*component.Component, error) {
	if loc.Subpath == "" {
		return full, nil
	}
	sub, err := full.Sub(loc.Subpath)
	if err != nil {
		return nil, err
	}
	sub.Digest = integrity.Digest(sub)
	return sub, nil
}

// fromLock attempts the lockfile fast path: entry present, source still
// available (a lightweight probe, no content fetch), cache entry committed
// and digest unchanged.
func (s *System) fromLock(ctx context.Context, loc *locator.Locator) (*component.Component, bool, error) {
	s.mu.Lock()
	entry, ok := s.lock.Lookup(loc.String())
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}

	available, err := s.fetcher.CheckAvailability(ctx, loc)
	if err != nil || !available {
		// fall back to a full resolution; availability errors surface there
		return nil, false, nil
	}

	cached, ok, err := s.store.Get(ctx, loc.CacheKey(entry.Version))
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	c, err := view(cached, loc)
	if err != nil || c.Digest != entry.Digest {
		// stale or reshaped cache content; resolve from scratch
		return nil, false, nil
	}
	return c, true, nil
}

func (s *System) recordLock(entry *lockfile.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock.Upsert(entry)
	return s.locker.Save(s.lock)
}

// Get is a cache-only lookup: no resolution, no network. An unpinned locator
// falls back to the version the lockfile recorded for it.
func (s *System) Get(ctx context.Context, loc *locator.Locator) (*component.Component, bool, error) {
	version := loc.Version
	if version == "" {
		s.mu.Lock()
		entry, ok := s.lock.Lookup(loc.String())
		s.mu.Unlock()
		if !ok {
			return nil, false, nil
		}
		version = entry.Version
	}

	full, ok, err := s.store.Get(ctx, loc.CacheKey(version))
	if err != nil || !ok {
		return nil, false, err
	}
	c, err := view(full, loc)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// FetchManifest exposes manifest-only retrieval to the codegen pipeline.
func (s *System) FetchManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error) {
	return s.fetcher.FetchManifest(ctx, loc)
}

// CheckAvailability probes the locator's source without fetching content.
func (s *System) CheckAvailability(ctx context.Context, loc *locator.Locator) (bool, error) {
	return s.fetcher.CheckAvailability(ctx, loc)
}
