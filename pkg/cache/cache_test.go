// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"os"
	"strings"
	"testing"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/integrity"
	manifesttestdata "forge.build/x/forge/pkg/manifest/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "github:acme/jwt-auth@v1.2.3"

func fixture(t *testing.T) *component.Component {
	c := &component.Component{
		Files: []component.File{
			{Path: "component.yaml", Data: manifesttestdata.Valid},
			{Path: "templates/middleware.tmpl", Data: []byte("{{ . }}")},
		},
	}
	require.NoError(t, integrity.Verify(c, ""))
	return c
}

func testStores(t *testing.T) map[string]Store {
	dirStore, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	return map[string]Store{
		"dir": dirStore,
		"mem": NewMemStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			in := fixture(t)
			require.NoError(t, store.Put(ctx, testKey, in))

			out, ok, err := store.Get(ctx, testKey)
			require.NoError(t, err)
			require.True(t, ok)

			// byte-identical on both content and recorded digest
			assert.Equal(t, in.Files, out.Files)
			assert.Equal(t, in.Digest, out.Digest)
			assert.Equal(t, in.Digest, integrity.Digest(out))
		})
	}
}

func TestGetUnknownKey(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := store.Get(context.Background(), "registry:acme/nope@1.0.0")
			require.NoError(t, err, "an absent key is not an error")
			assert.False(t, ok)
		})
	}
}

func TestPutFirstWriteWins(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first := fixture(t)
			require.NoError(t, store.Put(ctx, testKey, first))

			second := fixture(t)
			second.Files = append(second.Files, component.File{Path: "extra", Data: []byte("x")})
			require.NoError(t, store.Put(ctx, testKey, second))

			out, ok, err := store.Get(ctx, testKey)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, first.Files, out.Files)
		})
	}
}

func TestDirStoreLeavesNoTempDirs(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), testKey, fixture(t)))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "tmp-"), "uncommitted temp dir %s left behind", e.Name())
	}
}

func TestDirStoreSurvivesReopen(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root)
	require.NoError(t, err)
	in := fixture(t)
	require.NoError(t, store.Put(context.Background(), testKey, in))

	reopened, err := NewDirStore(root)
	require.NoError(t, err)
	out, ok, err := reopened.Get(context.Background(), testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in.Digest, out.Digest)
	assert.Equal(t, "jwt-auth", out.Manifest.Name)
}
