// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"forge.build/x/forge/pkg/compat"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"forge.build/x/forge/pkg/schema"
	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIVersion = "0.1.5"

// fakeSource serves manifests from an in-memory graph keyed by
// locator path key and published ref.
type fakeSource struct {
	components map[string]map[string]*manifest.Manifest
}

func newFakeSource() *fakeSource {
	return &fakeSource{components: map[string]map[string]*manifest.Manifest{}}
}

func (s *fakeSource) publish(ref string, m *manifest.Manifest) {
	loc := lo.Must(locator.Parse(ref))
	byRef, ok := s.components[loc.PathKey()]
	if !ok {
		byRef = map[string]*manifest.Manifest{}
		s.components[loc.PathKey()] = byRef
	}
	byRef[loc.Version] = m
}

func (s *fakeSource) FetchManifest(_ context.Context, loc *locator.Locator) (*manifest.Manifest, error) {
	byRef, ok := s.components[loc.PathKey()]
	if !ok {
		return nil, fmt.Errorf("unknown component %s", loc.PathKey())
	}

	ref := loc.Version
	if ref == "" {
		versions, _ := s.AvailableVersions(context.Background(), loc)
		if len(versions) == 0 {
			return nil, fmt.Errorf("no published versions for %s", loc.PathKey())
		}
		ref = versions[len(versions)-1].Original()
	}

	m, ok := byRef[ref]
	if !ok {
		return nil, fmt.Errorf("unknown ref %s for %s", ref, loc.PathKey())
	}
	return m, nil
}

func (s *fakeSource) AvailableVersions(_ context.Context, loc *locator.Locator) ([]*semver.Version, error) {
	var versions []*semver.Version
	for ref := range s.components[loc.PathKey()] {
		if v, err := semver.NewVersion(ref); err == nil {
			versions = append(versions, v)
		}
	}
	slices.SortFunc(versions, func(a, b *semver.Version) int { return a.Compare(b) })
	return versions, nil
}

func mkManifest(name, version string, deps map[string]string) *manifest.Manifest {
	return &manifest.Manifest{
		ManifestMeta: schema.ManifestMeta{APIVersion: manifest.ManifestAPIVersion, Kind: manifest.ManifestKind},
		Name:         name,
		Version:      version,
		Dependencies: deps,
		Compatibility: &manifest.Compatibility{
			APIVersion: manifest.ManifestAPIVersion,
			MinVersion: "0.1.0",
			MaxVersion: "0.2.0",
		},
	}
}

func resolvedVersions(solution []*Resolved) map[string]string {
	out := map[string]string{}
	for _, r := range solution {
		out[r.Manifest.Name] = r.Version.Original()
	}
	return out
}

func TestResolvePicksHighestVersion(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/logging@1.0.0", mkManifest("logging", "1.0.0", nil))
	src.publish("acme/logging@2.0.0", mkManifest("logging", "2.0.0", nil))
	src.publish("acme/logging@2.1.0", mkManifest("logging", "2.1.0", nil))

	root := mkManifest("app", "0.1.0", map[string]string{"acme/logging": ""})

	solution, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, solution, 1)
	assert.Equal(t, "2.1.0", solution[0].Version.Original())
	assert.Equal(t, "acme/logging@2.1.0", solution[0].Locator.String())
}

func TestResolveOverlappingConstraints(t *testing.T) {
	src := newFakeSource()
	for _, v := range []string{"1.0.0", "1.5.0", "2.0.0"} {
		src.publish("acme/logging@"+v, mkManifest("logging", v, nil))
	}
	src.publish("acme/metrics@1.0.0", mkManifest("metrics", "1.0.0", map[string]string{
		"acme/logging": "<2.0.0",
	}))

	root := mkManifest("app", "0.1.0", map[string]string{
		"acme/logging": ">=1.0.0",
		"acme/metrics": "",
	})

	solution, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.NoError(t, err)

	// the intersection of >=1.0.0 and <2.0.0 tops out at 1.5.0
	assert.Equal(t, map[string]string{"logging": "1.5.0", "metrics": "1.0.0"}, resolvedVersions(solution))
}

func TestResolveDisjointConstraints(t *testing.T) {
	src := newFakeSource()
	for _, v := range []string{"1.0.0", "2.0.0"} {
		src.publish("acme/logging@"+v, mkManifest("logging", v, nil))
	}
	src.publish("acme/metrics@1.0.0", mkManifest("metrics", "1.0.0", map[string]string{
		"acme/logging": ">=2.0.0",
	}))

	root := mkManifest("app", "0.1.0", map[string]string{
		"acme/logging": "<2.0.0",
		"acme/metrics": "",
	})

	_, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.ErrorIs(t, err, ErrResolution)

	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "registry:acme/logging", conflict.Component)
}

func TestResolveCycle(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/a@1.0.0", mkManifest("a", "1.0.0", map[string]string{"acme/b": ""}))
	src.publish("acme/b@1.0.0", mkManifest("b", "1.0.0", map[string]string{"acme/c": ""}))
	src.publish("acme/c@1.0.0", mkManifest("c", "1.0.0", map[string]string{"acme/a": ""}))

	root := mkManifest("app", "0.1.0", map[string]string{"acme/a": ""})

	_, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.ErrorIs(t, err, ErrResolution)

	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"registry:acme/a", "registry:acme/b", "registry:acme/c", "registry:acme/a"}, cyclic.Chain)
}

func TestResolveSelfCycle(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/a@1.0.0", mkManifest("a", "1.0.0", map[string]string{"acme/a": ""}))

	root := mkManifest("app", "0.1.0", map[string]string{"acme/a": ""})

	_, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	var cyclic *CyclicDependencyError
	require.ErrorAs(t, err, &cyclic)
	assert.Equal(t, []string{"registry:acme/a", "registry:acme/a"}, cyclic.Chain)
}

// A diamond (root -> a, b; a -> c; b -> c) resolves c once and emits it
// before either dependent.
func TestResolveDiamondDependencyOrder(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/a@1.0.0", mkManifest("a", "1.0.0", map[string]string{"acme/c": ""}))
	src.publish("acme/b@1.0.0", mkManifest("b", "1.0.0", map[string]string{"acme/c": ""}))
	src.publish("acme/c@1.0.0", mkManifest("c", "1.0.0", nil))

	root := mkManifest("app", "0.1.0", map[string]string{"acme/a": "", "acme/b": ""})

	solution, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.NoError(t, err)

	names := lo.Map(solution, func(r *Resolved, _ int) string { return r.Manifest.Name })
	assert.Equal(t, []string{"c", "a", "b"}, names)
}

func TestResolveIncompatibleComponent(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/logging@1.0.0", mkManifest("logging", "1.0.0", nil))

	root := mkManifest("app", "0.1.0", map[string]string{"acme/logging": ""})

	// this binary's component-API version is past the manifest's max-version
	_, err := New(src, "0.3.0").Resolve(context.Background(), root)
	require.ErrorIs(t, err, ErrResolution)

	var incompatible *IncompatibleComponentError
	require.ErrorAs(t, err, &incompatible)
	assert.Equal(t, compat.TooNew, incompatible.Status)
}

func TestResolveRefPin(t *testing.T) {
	src := newFakeSource()
	src.publish("github:acme/widget@main", mkManifest("widget", "1.0.0", nil))

	root := mkManifest("app", "0.1.0", map[string]string{"github:acme/widget": "main"})

	solution, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, solution, 1)

	// the emitted locator carries the pin, not the manifest's version
	assert.Equal(t, "github:acme/widget@main", solution[0].Locator.String())
	assert.Equal(t, "1.0.0", solution[0].Version.Original())
}

func TestResolveConflictingRefPins(t *testing.T) {
	src := newFakeSource()
	src.publish("github:acme/widget@main", mkManifest("widget", "1.0.0", nil))
	src.publish("github:acme/widget@dev", mkManifest("widget", "1.1.0", nil))
	src.publish("acme/a@1.0.0", mkManifest("a", "1.0.0", map[string]string{"github:acme/widget": "dev"}))

	root := mkManifest("app", "0.1.0", map[string]string{
		"acme/a":             "",
		"github:acme/widget": "main",
	})

	_, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "github:acme/widget", conflict.Component)
}

// A later edge can invalidate an earlier choice: the node is re-chosen at
// the highest jointly satisfiable version and its edges are walked again.
func TestResolveBacktracksOnNarrowedConstraint(t *testing.T) {
	src := newFakeSource()
	src.publish("acme/x@1.5.0", mkManifest("x", "1.5.0", nil))
	src.publish("acme/x@2.0.0", mkManifest("x", "2.0.0", map[string]string{"acme/only-in-v2": ""}))
	src.publish("acme/only-in-v2@1.0.0", mkManifest("only-in-v2", "1.0.0", nil))
	src.publish("acme/y@1.0.0", mkManifest("y", "1.0.0", map[string]string{"acme/x": "<2.0.0"}))

	root := mkManifest("app", "0.1.0", map[string]string{
		"acme/x": ">=1.0.0",
		"acme/y": "",
	})

	solution, err := New(src, testAPIVersion).Resolve(context.Background(), root)
	require.NoError(t, err)

	versions := resolvedVersions(solution)
	assert.Equal(t, "1.5.0", versions["x"])
	assert.Equal(t, "1.0.0", versions["y"])
	// the re-chosen 1.5.0 manifest has no edge to only-in-v2
	assert.NotContains(t, versions, "only-in-v2")
}
