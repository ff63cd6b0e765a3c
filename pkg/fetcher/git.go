// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"forge.build/x/forge/pkg/utils"
	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"
)

// checkoutGit clones the locator's repository into a temp dir and checks out
// the locator's version as a git ref (tag, branch or commit). The returned
// dir points at the component root, i.e. the subpath when one is set.
func (f *Fetcher) checkoutGit(ctx context.Context, loc *locator.Locator) (dir string, cleanup func() error, err error) {
	url, err := loc.ResolveURL(f.config.Registry)
	if err != nil {
		return "", nil, err
	}

	tmp, deleteFn, err := utils.MkdirTemp("", "forge-git-")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	abort := func() (string, func() error, error) {
		_ = deleteFn()
		return "", nil, err
	}

	repo, err := git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{URL: url})
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		err = fmt.Errorf("%w: %s", ErrComponentNotFound, loc.String())
		return abort()
	}
	if err != nil {
		err = fmt.Errorf("%w: clone %s: %s", ErrFetch, url, err.Error())
		return abort()
	}

	if loc.Version != "" {
		hash, revErr := repo.ResolveRevision(plumbing.Revision(loc.Version))
		if revErr != nil {
			err = fmt.Errorf("%w: %s: no ref %q: %s", ErrComponentNotFound, loc.String(), loc.Version, revErr.Error())
			return abort()
		}
		wt, wtErr := repo.Worktree()
		if wtErr != nil {
			err = fmt.Errorf("%w: %s", ErrFetch, wtErr.Error())
			return abort()
		}
		if coErr := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); coErr != nil {
			err = fmt.Errorf("%w: checkout %s: %s", ErrFetch, loc.Version, coErr.Error())
			return abort()
		}
	}

	root := tmp
	if loc.Subpath != "" {
		root = filepath.Join(tmp, filepath.FromSlash(loc.Subpath))
		ok, statErr := utils.DirExists(root)
		if statErr != nil {
			err = fmt.Errorf("%w: %s", ErrFetch, statErr.Error())
			return abort()
		}
		if !ok {
			err = fmt.Errorf("%w: %s: subpath %q does not exist in checkout", ErrComponentNotFound, loc.String(), loc.Subpath)
			return abort()
		}
	}

	return root, deleteFn, nil
}

func (f *Fetcher) fetchGitComponent(ctx context.Context, loc *locator.Locator) (*component.Component, error) {
	dir, cleanup, err := f.checkoutGit(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cleanup() }()

	files, err := component.ReadFileSet(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	return componentFromFiles(loc, files)
}

func (f *Fetcher) fetchGitManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error) {
	dir, cleanup, err := f.checkoutGit(ctx, loc)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cleanup() }()

	return manifest.Read(filepath.Join(dir, manifest.Filename))
}

// gitAvailableVersions lists the remote's tags and keeps those that parse as
// semantic versions. A leading "v" is fine, Masterminds tolerates it.
func (f *Fetcher) gitAvailableVersions(ctx context.Context, loc *locator.Locator) ([]*semver.Version, error) {
	refs, err := f.listRemote(ctx, loc)
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrComponentNotFound, loc.String())
	}
	if err != nil {
		return nil, err
	}

	var tags []string
	for _, ref := range refs {
		if ref.Name().IsTag() {
			tags = append(tags, ref.Name().Short())
		}
	}
	return sortedVersions(tags), nil
}

func (f *Fetcher) gitCheckAvailability(ctx context.Context, loc *locator.Locator) (bool, error) {
	refs, err := f.listRemote(ctx, loc)
	if errors.Is(err, transport.ErrRepositoryNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if loc.Version == "" {
		return true, nil
	}

	for _, ref := range refs {
		if ref.Name().Short() == loc.Version {
			return true, nil
		}
		// a pinned commit, possibly abbreviated
		if len(loc.Version) >= 7 && strings.HasPrefix(ref.Hash().String(), loc.Version) {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fetcher) listRemote(ctx context.Context, loc *locator.Locator) ([]*plumbing.Reference, error) {
	url, err := loc.ResolveURL(f.config.Registry)
	if err != nil {
		return nil, err
	}

	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{url},
	})
	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil && !errors.Is(err, transport.ErrRepositoryNotFound) {
		return nil, fmt.Errorf("%w: list %s: %s", ErrFetch, url, err.Error())
	}
	return refs, err
}
