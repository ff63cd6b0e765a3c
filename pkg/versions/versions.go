// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package versions

import (
	"slices"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/lo"
)

// Version is one row of a component's version listing: what the registry or
// git remote offers, what the local cache holds, and what the project's
// lockfile pins.
type Version struct {
	Version *semver.Version `json:"version,omitempty"`
	Cached  bool            `json:"cached,omitempty"`
	Remote  bool            `json:"remote,omitempty"`
	Locked  bool            `json:"locked,omitempty"`
}

type Versions []*Version

type versionsMap map[string]*Version

func New(locked *semver.Version, cached []*semver.Version, remote []*semver.Version) Versions {
	m := versionsMap{}

	if locked != nil {
		m.add(&Version{Version: locked, Locked: true})
	}

	for _, v := range cached {
		m.add(&Version{Version: v, Cached: true})
	}

	for _, v := range remote {
		m.add(&Version{Version: v, Remote: true})
	}

	r := Versions(lo.Values(m))
	r.Sort()
	return r
}

func (v versionsMap) add(e *Version) {
	key := e.Version.String()
	_, ok := v[key]

	if !ok {
		v[key] = e
		return
	}

	v[key].Cached = v[key].Cached || e.Cached
	v[key].Remote = v[key].Remote || e.Remote
	v[key].Locked = v[key].Locked || e.Locked
}

// Sort by semantic version number
func (v Versions) Sort() {
	slices.SortFunc(v, func(a, b *Version) int {
		return a.Version.Compare(b.Version)
	})
}

// SortByCached orders cached versions last, then by semantic version number
func (v Versions) SortByCached() {
	slices.SortFunc(v, func(a, b *Version) int {
		if a.Cached && !b.Cached {
			return 1
		}

		if !a.Cached && b.Cached {
			return -1
		}

		return a.Version.Compare(b.Version)
	})
}

func (v Versions) Table() string {
	rows := make(Versions, len(v))
	copy(rows, v)
	rows.SortByCached()

	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		Rows(lo.Map(rows, func(row *Version, _ int) []string {
			indicator := ""
			version := row.Version.Original()

			switch {
			case row.Locked:
				indicator = "*"
				version = lipgloss.NewStyle().
					Foreground(lipgloss.Color("2")).
					Bold(true).
					Render(version)
			case !row.Cached:
				version = lipgloss.NewStyle().
					Faint(true).
					Italic(true).
					Render(version)
			}

			return []string{
				indicator,
				version,
			}
		})...).
		String()
}
