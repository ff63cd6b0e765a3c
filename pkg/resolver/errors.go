// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"fmt"
	"strings"

	"forge.build/x/forge/pkg/compat"
)

var ErrResolution = fmt.Errorf("dependency resolution failure")

// VersionConflictError: two edges demand the same component path under
// requirements with an empty intersection.
type VersionConflictError struct {
	Component   string
	ConstraintA string
	ConstraintB string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: version conflict on %s: %q is not satisfiable together with %q",
		ErrResolution.Error(), e.Component, e.ConstraintA, e.ConstraintB)
}

func (e *VersionConflictError) Unwrap() error {
	return ErrResolution
}

// CyclicDependencyError: an edge re-entered a component already on the
// active resolution stack. The chain runs from the first occurrence back to
// the re-entry.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("%s: cyclic dependency: %s", ErrResolution.Error(), strings.Join(e.Chain, " -> "))
}

func (e *CyclicDependencyError) Unwrap() error {
	return ErrResolution
}

// IncompatibleComponentError: a chosen manifest's declared component-API
// range excludes the caller's API version. The dependency is never silently
// skipped; the whole resolution fails.
type IncompatibleComponentError struct {
	Locator string
	Status  compat.Status
}

func (e *IncompatibleComponentError) Error() string {
	return fmt.Sprintf("%s: %s is incompatible with this component-API version (%s)",
		ErrResolution.Error(), e.Locator, e.Status.String())
}

func (e *IncompatibleComponentError) Unwrap() error {
	return ErrResolution
}
