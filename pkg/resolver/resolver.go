// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"forge.build/x/forge/pkg/compat"
	"forge.build/x/forge/pkg/locator"
	"forge.build/x/forge/pkg/manifest"
	"github.com/Masterminds/semver/v3"
	"github.com/samber/lo"
)

// Source supplies the resolver with manifests and version listings. The
// fetcher satisfies it; tests substitute an in-memory graph.
type Source interface {
	FetchManifest(ctx context.Context, loc *locator.Locator) (*manifest.Manifest, error)
	AvailableVersions(ctx context.Context, loc *locator.Locator) ([]*semver.Version, error)
}

// Resolved is one solved graph node: the locator pinned to the chosen
// concrete version, plus the manifest fetched at that version.
type Resolved struct {
	Locator  *locator.Locator
	Version  *semver.Version
	Manifest *manifest.Manifest
}

// nodeState tracks a node through resolution. Conflicted and Cyclic are
// terminal failures; Resolved is the only successful terminal state.
type nodeState int

const (
	statePending nodeState = iota
	stateManifestFetched
	stateCompatibilityChecked
	stateResolved
	stateConflicted
	stateCyclic
)

// requirement is one edge's demand on a component: either a semver
// constraint, a non-semver ref pin (a git branch or commit), or nothing.
type requirement struct {
	raw        string
	constraint *semver.Constraints // nil for ref pins and empty requirements
	from       string              // canonical locator of the requiring manifest
}

func parseRequirement(raw, from string) requirement {
	req := requirement{raw: raw, from: from}
	if raw == "" {
		return req
	}
	if c, err := semver.NewConstraint(raw); err == nil {
		req.constraint = c
	}
	return req
}

func (r requirement) isRefPin() bool {
	return r.raw != "" && r.constraint == nil
}

// node is the arena entry for one component path. Two edges naming the same
// scheme+path collapse onto one node regardless of their version demands.
type node struct {
	key   string // locator.PathKey
	loc   *locator.Locator
	state nodeState

	reqs     []requirement
	version  *semver.Version
	fetchRef string // the ref the manifest was fetched at (pin or version string)
	manifest *manifest.Manifest
	deps     []*locator.Locator
}

// Resolver solves a root manifest's dependency graph: one concrete version
// per component path, no cycles, every chosen manifest compatible with the
// caller's component-API version. The walk uses an explicit frame stack over
// an arena of nodes, so graph depth is bounded by memory rather than by the
// goroutine call stack.
type Resolver struct {
	source     Source
	apiVersion string
	nodes      map[string]*node
}

func New(source Source, apiVersion string) *Resolver {
	return &Resolver{
		source:     source,
		apiVersion: apiVersion,
		nodes:      make(map[string]*node),
	}
}

const rootKey = "<root>"

type frame struct {
	node *node
	deps []*locator.Locator
	next int
}

// Resolve walks the graph from the root manifest's declared dependencies and
// returns the flattened, deduplicated solution in dependency order
// (dependencies before dependents), ready for sequential installation.
func (r *Resolver) Resolve(ctx context.Context, root *manifest.Manifest) ([]*Resolved, error) {
	rootDeps, err := root.DeclaredDependencies()
	if err != nil {
		return nil, err
	}

	rootNode := &node{key: rootKey, manifest: root, state: stateResolved, deps: rootDeps}
	stack := []*frame{{node: rootNode, deps: rootDeps}}
	onStack := map[string]int{rootKey: 0}

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next >= len(f.deps) {
			if f.node.state != stateResolved {
				f.node.state = stateResolved
			}
			delete(onStack, f.node.key)
			stack = stack[:len(stack)-1]
			continue
		}

		edge := f.deps[f.next]
		f.next++

		descend, err := r.visit(ctx, f.node, edge, stack, onStack)
		if err != nil {
			return nil, err
		}
		if descend != nil {
			onStack[descend.key] = len(stack)
			stack = append(stack, &frame{node: descend, deps: descend.deps})
		}
	}

	return r.emit(rootNode)
}

// visit handles one dependency edge. It returns the node to descend into, or
// nil when the edge is already satisfied by the current solution.
func (r *Resolver) visit(ctx context.Context, from *node, edge *locator.Locator, stack []*frame, onStack map[string]int) (*node, error) {
	key := edge.PathKey()

	if idx, ok := onStack[key]; ok {
		chain := lo.Map(stack[idx:], func(f *frame, _ int) string {
			return f.node.key
		})
		r.nodes[key].state = stateCyclic
		return nil, &CyclicDependencyError{Chain: append(chain, key)}
	}

	fromRef := rootKey
	if from.key != rootKey {
		fromRef = from.loc.String()
	}
	req := parseRequirement(edge.Version, fromRef)

	n, seen := r.nodes[key]
	if !seen {
		n = &node{key: key, loc: edge.WithVersion(""), state: statePending, reqs: []requirement{req}}
		r.nodes[key] = n
		if err := r.choose(ctx, n); err != nil {
			return nil, err
		}
		return n, nil
	}

	// the component is already part of the solution under a (possibly
	// different) requirement: check joint satisfiability
	if r.satisfies(n, req) {
		n.reqs = append(n.reqs, req)
		return nil, nil
	}

	previous := joinedRequirements(n.reqs)
	n.reqs = append(n.reqs, req)

	oldVersion := n.version
	if err := r.choose(ctx, n); err != nil {
		var conflict *VersionConflictError
		if !errors.As(err, &conflict) {
			return nil, err
		}
		n.state = stateConflicted
		return nil, &VersionConflictError{
			Component:   key,
			ConstraintA: previous,
			ConstraintB: req.raw,
		}
	}

	if oldVersion != nil && n.version.Equal(oldVersion) {
		return nil, nil
	}
	// the intersection forced a different version: the manifest changed, so
	// its edges must be walked again
	return n, nil
}

// satisfies reports whether the node's current choice meets a new
// requirement without re-resolution.
func (r *Resolver) satisfies(n *node, req requirement) bool {
	switch {
	case req.raw == "":
		return true
	case req.isRefPin():
		return n.fetchRef == req.raw
	case n.version != nil:
		return req.constraint.Check(n.version)
	}
	return false
}

// choose picks the node's concrete version from the jointly satisfiable set,
// fetches its manifest and runs the compatibility check. Choice policy:
// highest available version satisfying every requirement; a ref pin wins
// outright but must still satisfy any semver constraints on the same node.
func (r *Resolver) choose(ctx context.Context, n *node) error {
	pins := lo.Filter(n.reqs, func(q requirement, _ int) bool { return q.isRefPin() })
	if len(pins) > 0 {
		distinct := lo.UniqBy(pins, func(q requirement) string { return q.raw })
		if len(distinct) > 1 {
			n.state = stateConflicted
			return &VersionConflictError{Component: n.key, ConstraintA: distinct[0].raw, ConstraintB: distinct[1].raw}
		}
		return r.fetchAt(ctx, n, pins[0].raw)
	}

	candidates, err := r.source.AvailableVersions(ctx, n.loc)
	if err != nil {
		return err
	}

	if len(candidates) == 0 {
		// no published listing (e.g. a local directory): the manifest's own
		// version is the only candidate
		return r.fetchAt(ctx, n, "")
	}

	// candidates are sorted ascending; scan from the top
	for i := len(candidates) - 1; i >= 0; i-- {
		v := candidates[i]
		if !r.checkAll(n.reqs, v) {
			continue
		}
		return r.fetchAt(ctx, n, v.Original())
	}

	n.state = stateConflicted
	a, b := splitRequirements(n.reqs)
	return &VersionConflictError{Component: n.key, ConstraintA: a, ConstraintB: b}
}

// fetchAt fetches the node's manifest at ref ("" means the source's own or
// latest version) and advances the node through ManifestFetched and
// CompatibilityChecked.
func (r *Resolver) fetchAt(ctx context.Context, n *node, ref string) error {
	loc := n.loc.WithVersion(ref)
	m, err := r.source.FetchManifest(ctx, loc)
	if err != nil {
		return err
	}
	n.state = stateManifestFetched

	v, err := m.SemVersion()
	if err != nil {
		return err
	}
	if !r.checkAll(n.reqs, v) {
		n.state = stateConflicted
		a, b := splitRequirements(n.reqs)
		return &VersionConflictError{Component: n.key, ConstraintA: a, ConstraintB: b}
	}

	if status := compat.Check(m, r.apiVersion); status != compat.Compatible {
		return &IncompatibleComponentError{Locator: loc.String(), Status: status}
	}
	n.state = stateCompatibilityChecked

	deps, err := m.DeclaredDependencies()
	if err != nil {
		return err
	}

	n.manifest = m
	n.version = v
	n.deps = deps
	if ref == "" {
		n.fetchRef = v.Original()
	} else {
		n.fetchRef = ref
	}
	return nil
}

func (r *Resolver) checkAll(reqs []requirement, v *semver.Version) bool {
	for _, q := range reqs {
		if q.constraint != nil && !q.constraint.Check(v) {
			return false
		}
	}
	return true
}

// emit flattens the final node set in dependency order via an explicit-stack
// post-order walk over the chosen manifests' edges.
func (r *Resolver) emit(root *node) ([]*Resolved, error) {
	var out []*Resolved
	done := make(map[string]bool)

	stack := []*frame{{node: root, deps: root.deps}}
	done[root.key] = true

	for len(stack) > 0 {
		f := stack[len(stack)-1]

		if f.next >= len(f.deps) {
			if f.node.key != rootKey {
				out = append(out, &Resolved{
					Locator:  f.node.loc.WithVersion(f.node.fetchRef),
					Version:  f.node.version,
					Manifest: f.node.manifest,
				})
			}
			stack = stack[:len(stack)-1]
			continue
		}

		dep := f.deps[f.next]
		f.next++

		next, ok := r.nodes[dep.PathKey()]
		if !ok {
			return nil, fmt.Errorf("%w: unresolved edge %q", ErrResolution, dep.String())
		}
		if done[next.key] {
			continue
		}
		done[next.key] = true
		stack = append(stack, &frame{node: next, deps: next.deps})
	}

	return out, nil
}

func joinedRequirements(reqs []requirement) string {
	raws := lo.FilterMap(reqs, func(q requirement, _ int) (string, bool) {
		return q.raw, q.raw != ""
	})
	return strings.Join(raws, ", ")
}

// splitRequirements renders the conflicting demand as "everything before"
// vs. "the newest edge".
func splitRequirements(reqs []requirement) (a, b string) {
	if len(reqs) == 0 {
		return "", ""
	}
	if len(reqs) == 1 {
		return reqs[0].raw, ""
	}
	return joinedRequirements(reqs[:len(reqs)-1]), reqs[len(reqs)-1].raw
}
