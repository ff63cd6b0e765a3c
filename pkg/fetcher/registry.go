// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/user"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"github.com/Masterminds/semver/v3"
	"github.com/goccy/go-yaml"
	"github.com/jdx/go-netrc"
	"github.com/samber/lo"
)

const (
	archiveFilename = "component.tar.gz"
	indexFilename   = "index.yaml"

	// latestVersion is what an unversioned registry locator fetches
	latestVersion = "latest"

	maxAttempts  = 3
	retryBackoff = 200 * time.Millisecond
)

// registryClient talks to the component registry over plain HTTP. Requests
// to a flaky registry are retried a bounded number of times at this
// transport level only; resolution and integrity failures upstream are never
// retried since those indicate a logic or trust violation.
type registryClient struct {
	config *forgeconfig.Config
	client *http.Client
}

func newRegistryClient(config *forgeconfig.Config) *registryClient {
	return &registryClient{
		config: config,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// versionIndex is the registry's published version listing for a component.
type versionIndex struct {
	Versions []string `yaml:"versions"`
}

func (r *registryClient) fetchManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error) {
	// the registry only serves the archive root's manifest as a standalone
	// file; a nested component's manifest exists inside the archive, so
	// resolving a subpath locator must read it from there
	if loc.Subpath != "" {
		c, err := r.fetchComponent(ctx, loc)
		if err != nil {
			return nil, err
		}
		return c.Manifest, nil
	}

	data, err := r.get(ctx, loc, r.fileURL(loc, manifest.Filename))
	if err != nil {
		return nil, err
	}
	return manifest.ReadContents(data)
}

func (r *registryClient) fetchComponent(ctx context.Context, loc *locator.Locator) (*component.Component, error) {
	data, err := r.get(ctx, loc, r.fileURL(loc, archiveFilename))
	if err != nil {
		return nil, err
	}

	files, err := UnpackArchive(data, loc.Subpath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrFetch, loc.String(), err.Error())
	}
	return componentFromFiles(loc, files)
}

func (r *registryClient) availableVersions(ctx context.Context, loc *locator.Locator) ([]*semver.Version, error) {
	base, err := r.baseURL(loc)
	if err != nil {
		return nil, err
	}
	data, err := r.get(ctx, loc, base+"/"+indexFilename)
	if err != nil {
		return nil, err
	}

	var index versionIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %s: malformed version index: %s", ErrFetch, loc.String(), err.Error())
	}
	return sortedVersions(index.Versions), nil
}

func (r *registryClient) checkAvailability(ctx context.Context, loc *locator.Locator) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.fileURL(loc, manifest.Filename), nil)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	r.decorate(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// fileURL never fails: ResolveURL is total for the registry scheme.
func (r *registryClient) fileURL(loc *locator.Locator, filename string) string {
	base, _ := r.baseURL(loc)
	version := loc.Version
	if version == "" {
		version = latestVersion
	}
	return base + "/" + version + "/" + filename
}

func (r *registryClient) baseURL(loc *locator.Locator) (string, error) {
	u, err := loc.ResolveURL(r.config.Registry)
	if err != nil {
		return "", err
	}
	if r.config.Insecure {
		u = "http://" + strings.TrimPrefix(u, "https://")
	}
	return u, nil
}

func (r *registryClient) get(ctx context.Context, loc *locator.Locator, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt-1) * retryBackoff):
			}
			slog.Debug("retrying registry request", "url", url, "attempt", attempt)
		}

		data, retriable, err := r.getOnce(ctx, loc, url)
		if err == nil {
			return data, nil
		}
		if !retriable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (r *registryClient) getOnce(ctx context.Context, loc *locator.Locator, url string) (data []byte, retriable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	r.decorate(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrComponentNotFound, loc.String())
	case resp.StatusCode >= 500:
		return nil, true, &FetchFailedError{Locator: loc.String(), Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, false, &FetchFailedError{Locator: loc.String(), Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %s", ErrFetch, err.Error())
	}
	return body, false, nil
}

func (r *registryClient) decorate(req *http.Request) {
	req.Header.Set("User-Agent", forgeconfig.GetUserAgent())

	username, password, ok := r.credentials(req.URL.Hostname())
	if ok {
		req.SetBasicAuth(username, password)
	}
}

// credentials looks the registry host up in the configured netrc file
// (default ~/.netrc). No netrc, or no machine entry, means anonymous access.
func (r *registryClient) credentials(host string) (username, password string, ok bool) {
	path := r.config.RegistryAuthPath
	if path == "" {
		usr, err := user.Current()
		if err != nil {
			return "", "", false
		}
		path = filepath.Join(usr.HomeDir, ".netrc")
	}

	n, err := netrc.Parse(path)
	if err != nil {
		return "", "", false
	}
	machine := n.Machine(host)
	if machine == nil {
		return "", "", false
	}
	return machine.Get("login"), machine.Get("password"), true
}

func sortedVersions(raw []string) []*semver.Version {
	versions := lo.FilterMap(raw, func(s string, _ int) (*semver.Version, bool) {
		v, err := semver.NewVersion(s)
		return v, err == nil
	})
	slices.SortFunc(versions, func(a, b *semver.Version) int {
		return a.Compare(b)
	})
	return versions
}
