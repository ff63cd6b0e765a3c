// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"

	"forge.build/x/forge/pkg/component"
)

var ErrCache = fmt.Errorf("component cache failure")

// Store is a content-addressed component store keyed by canonical
// locator+version (see locator.CacheKey). Entries have no eviction policy:
// components are small and versioned, not a bounded working set, so they
// persist until explicitly invalidated.
//
// Implementations must commit writes atomically: a concurrent reader either
// sees a fully written entry or none at all.
type Store interface {
	// Put stores a verified component under key. Storing the same key twice
	// is a no-op (the first fully committed entry wins).
	Put(ctx context.Context, key string, c *component.Component) error

	// Get returns the entry for key, or ok=false when absent. Absence is
	// not an error.
	Get(ctx context.Context, key string) (c *component.Component, ok bool, err error)
}
