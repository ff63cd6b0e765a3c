// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"

	"forge.build/x/forge/pkg/component"
)

// MemStore keeps entries in memory. Tests substitute it for the directory
// store; the orchestrator takes the Store capability explicitly so this is a
// drop-in.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*component.Component
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*component.Component)}
}

func (s *MemStore) Put(_ context.Context, key string, c *component.Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; ok {
		return nil
	}

	// deep-copy the file set so callers can't mutate a committed entry
	cp := &component.Component{Manifest: c.Manifest, Digest: c.Digest}
	for _, f := range c.Files {
		data := make([]byte, len(f.Data))
		copy(data, f.Data)
		cp.Files = append(cp.Files, component.File{Path: f.Path, Data: data})
	}
	s.entries[key] = cp
	return nil
}

func (s *MemStore) Get(_ context.Context, key string) (*component.Component, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[key]
	return c, ok, nil
}

// Len reports the number of committed entries.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ Store = (*MemStore)(nil)
