// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"forge.build/x/forge/pkg/schema"
	"forge.build/x/forge/pkg/utils/stringset"
	"github.com/goccy/go-yaml"
)

const (
	LockKind       = "ComponentLock"
	LockVersion    = "v1"
	LockAPIVersion = schema.APIGroup + "/" + LockVersion
)

var ErrInvalidLock = fmt.Errorf("invalid component lockfile")

// Lock records a successful resolution: every root-requested locator mapped
// to its concrete version, content digest, and flattened transitive closure.
// An identical lockfile means an identical installed file set.
type Lock struct {
	schema.ManifestMeta `yaml:",inline"`
	Components          []*Entry `yaml:"components"`
}

type Entry struct {
	// Locator is the root request's canonical form, version included
	Locator string `yaml:"locator"`
	Version string `yaml:"version"`
	Digest  string `yaml:"digest,omitempty"`
	// Dependencies are the canonical locators of the flattened transitive
	// closure, in installation order
	Dependencies []string `yaml:"dependencies,omitempty"`
}

func New() *Lock {
	return &Lock{
		ManifestMeta: schema.ManifestMeta{
			APIVersion: LockAPIVersion,
			Kind:       LockKind,
		},
	}
}

func Read(filePath string) (*Lock, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	return ReadContents(bytes)
}

func ReadContents(contents []byte) (*Lock, error) {
	var l Lock
	if err := yaml.Unmarshal(contents, &l); err != nil {
		return nil, err
	}

	s := schema.ManifestMeta{
		APIVersion: LockAPIVersion,
		Kind:       LockKind,
	}
	if err := s.ValidateSchema(l.ManifestMeta); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidLock, err.Error())
	}

	return &l, nil
}

// Lookup finds the entry whose locator matches the canonical form, version
// included when the request pins one.
func (l *Lock) Lookup(canonicalLocator string) (*Entry, bool) {
	for _, e := range l.Components {
		if e.Locator == canonicalLocator {
			return e, true
		}
	}
	return nil, false
}

// Upsert replaces or inserts the entry for its locator, keeping the entry
// list sorted so that marshalling stays deterministic.
func (l *Lock) Upsert(entry *Entry) {
	for i, e := range l.Components {
		if e.Locator == entry.Locator {
			l.Components[i] = entry
			l.sort()
			return
		}
	}
	l.Components = append(l.Components, entry)
	l.sort()
}

func (l *Lock) sort() {
	slices.SortFunc(l.Components, func(a, b *Entry) int {
		return strings.Compare(a.Locator, b.Locator)
	})
}

// Marshal renders the lockfile deterministically: entries sorted by locator,
// struct field order fixed by the type. Re-running an unchanged resolution
// produces byte-identical output.
func (l *Lock) Marshal() ([]byte, error) {
	l.sort()
	return yaml.Marshal(l)
}

// InSync checks whether this (existing) lockfile matches an expected one:
// same locator set, and no recorded digest disagreeing with an expected one.
func (l *Lock) InSync(expected *Lock) bool {
	if len(l.Components) != len(expected.Components) {
		return false
	}

	existing := stringset.StringSet{}
	for _, e := range l.Components {
		existing.Add(e.Locator)
	}

	for _, want := range expected.Components {
		if !existing.Contains(want.Locator) {
			return false
		}
		got, _ := l.Lookup(want.Locator)
		if want.Digest != "" && got.Digest != "" && want.Digest != got.Digest {
			return false
		}
	}
	return true
}
