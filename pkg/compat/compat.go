// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package compat

import (
	"fmt"

	"forge.build/x/forge/pkg/manifest"
	"github.com/Masterminds/semver/v3"
)

// Status is the verdict of checking a caller's component-API version against
// the closed [min-version, max-version] interval a manifest declares.
type Status int

const (
	Compatible Status = iota
	TooOld
	TooNew
	Invalid
)

func (s Status) String() string {
	switch s {
	case Compatible:
		return "compatible"
	case TooOld:
		return "too-old"
	case TooNew:
		return "too-new"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Check is pure: it reads only its arguments, so the resolver can run it
// per-candidate without synchronization. Any version that fails to parse as
// a semantic version yields Invalid rather than a silent "compatible".
func Check(m *manifest.Manifest, targetVersion string) Status {
	if m.Compatibility == nil {
		return Invalid
	}

	target, err := semver.NewVersion(targetVersion)
	if err != nil {
		return Invalid
	}
	min, err := semver.NewVersion(m.Compatibility.MinVersion)
	if err != nil {
		return Invalid
	}
	max, err := semver.NewVersion(m.Compatibility.MaxVersion)
	if err != nil {
		return Invalid
	}

	switch {
	case target.LessThan(min):
		return TooOld
	case target.GreaterThan(max):
		return TooNew
	default:
		return Compatible
	}
}
