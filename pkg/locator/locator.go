// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package locator

import (
	"fmt"
	"strings"
)

var (
	ErrInvalidLocator   = fmt.Errorf("invalid component locator")
	ErrUnknownScheme    = fmt.Errorf("%w: unknown scheme", ErrInvalidLocator)
	ErrInvalidGitURL    = fmt.Errorf("%w: git locator is not an absolute url", ErrInvalidLocator)
	ErrMalformedOrgRepo = fmt.Errorf("%w: expected exactly one '/' between org and repo", ErrInvalidLocator)
)

// Scheme identifies where a component's content comes from.
// Registry, Git, GitHub and GitLab are remote; Path and File are local.
type Scheme int

const (
	Registry Scheme = iota
	Git
	GitHub
	GitLab
	Path
	File
)

func (s Scheme) String() string {
	switch s {
	case Registry:
		return "registry"
	case Git:
		return "git"
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	case Path:
		return "path"
	case File:
		return "file"
	}
	return fmt.Sprintf("scheme(%d)", int(s))
}

// Locator is a parsed component reference. It is immutable once constructed;
// the canonical String form is the locator's identity.
type Locator struct {
	Scheme  Scheme
	Path    string
	Version string // version or constraint, empty means "any"
	Subpath string
}

// Parse splits a reference of the form [scheme:]path[@version][#subpath].
//
// The subpath separator is the last '#' not escaped with a backslash. The
// version separator is the last '@' not followed by a '/', so an '@' inside a
// scoped registry path is never misread as a version. A bare reference with
// no recognized scheme prefix is a registry org/component path.
func Parse(reference string) (*Locator, error) {
	if reference == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidLocator)
	}

	rest, subpath := cutSubpath(reference)
	rest, version := cutVersion(rest)

	if rest == "" {
		return nil, fmt.Errorf("%w: reference %q has no path", ErrInvalidLocator, reference)
	}

	loc := &Locator{Version: version, Subpath: subpath}

	prefix, path, ok := strings.Cut(rest, ":")
	if !ok {
		loc.Scheme = Registry
		loc.Path = rest
		return loc, nil
	}

	switch prefix {
	case "git+https", "git+http":
		loc.Scheme = Git
		// restore the real protocol onto the path
		loc.Path = strings.TrimPrefix(prefix, "git+") + ":" + path
	case "github":
		loc.Scheme = GitHub
		loc.Path = path
	case "gitlab":
		loc.Scheme = GitLab
		loc.Path = path
	case "path":
		loc.Scheme = Path
		loc.Path = path
	case "file":
		loc.Scheme = File
		loc.Path = path
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, prefix)
	}

	if loc.Path == "" {
		return nil, fmt.Errorf("%w: reference %q has no path", ErrInvalidLocator, reference)
	}
	return loc, nil
}

func cutSubpath(s string) (rest, subpath string) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '#' && (i == 0 || s[i-1] != '\\') {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func cutVersion(s string) (rest, version string) {
	for i := len(s) - 1; i > 0; i-- {
		if s[i] != '@' {
			continue
		}
		if strings.Contains(s[i+1:], "/") {
			// '@' inside a path segment, not a version separator
			return s, ""
		}
		return s[:i], s[i+1:]
	}
	return s, ""
}

// String renders the canonical form. It is the exact inverse of Parse: for
// every valid reference, Parse(ref).String() re-parses to the same locator.
func (l *Locator) String() string {
	var b strings.Builder

	switch l.Scheme {
	case Registry:
		b.WriteString(l.Path)
	case Git:
		b.WriteString("git+" + l.Path)
	default:
		b.WriteString(l.Scheme.String() + ":" + l.Path)
	}

	if l.Version != "" {
		b.WriteString("@" + l.Version)
	}
	if l.Subpath != "" {
		b.WriteString("#" + l.Subpath)
	}
	return b.String()
}

// PathKey is the locator's identity ignoring version and subpath. The
// resolver keys its visited set on it so that two edges requesting the same
// component under different constraints collapse onto one node.
func (l *Locator) PathKey() string {
	return l.Scheme.String() + ":" + l.Path
}

// CacheKey is the content-address of a fetched component: scheme, path and
// the concrete resolved version. Subpath is deliberately excluded since a
// subpath of the same version is a content subset, not a different version.
func (l *Locator) CacheKey(version string) string {
	return l.PathKey() + "@" + version
}

func (l *Locator) IsLocal() bool {
	switch l.Scheme {
	case Path, File:
		return true
	case Registry, Git, GitHub, GitLab:
		return false
	}
	return false
}

func (l *Locator) IsRemote() bool {
	return !l.IsLocal()
}

// ResolveURL maps the locator onto a concrete fetch location.
func (l *Locator) ResolveURL(registryHost string) (string, error) {
	switch l.Scheme {
	case Registry:
		return fmt.Sprintf("https://%s/%s", registryHost, l.Path), nil
	case Git:
		if !strings.HasPrefix(l.Path, "https://") && !strings.HasPrefix(l.Path, "http://") {
			return "", fmt.Errorf("%w: %q", ErrInvalidGitURL, l.Path)
		}
		return l.Path, nil
	case GitHub:
		org, repo, err := l.orgRepo()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("https://github.com/%s/%s", org, repo), nil
	case GitLab:
		org, repo, err := l.orgRepo()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("https://gitlab.com/%s/%s", org, repo), nil
	case Path, File:
		return l.Path, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScheme, l.Scheme.String())
}

func (l *Locator) orgRepo() (string, string, error) {
	parts := strings.Split(l.Path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedOrgRepo, l.Path)
	}
	return parts[0], parts[1], nil
}

// WithVersion returns a copy pinned to a concrete version.
func (l *Locator) WithVersion(version string) *Locator {
	c := *l
	c.Version = version
	return &c
}

// WithSubpath returns a copy with the subpath replaced.
func (l *Locator) WithSubpath(subpath string) *Locator {
	c := *l
	c.Subpath = subpath
	return &c
}
