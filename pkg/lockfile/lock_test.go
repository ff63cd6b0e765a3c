// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"forge.build/x/forge/pkg/forgeconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLock() *Lock {
	l := New()
	l.Upsert(&Entry{
		Locator: "github:acme/jwt-auth@v1.2.3",
		Version: "v1.2.3",
		Digest:  "sha256:aaaa",
		Dependencies: []string{
			"acme/logging@2.1.0",
			"github:acme/crypto-helpers@v1.0.0",
		},
	})
	l.Upsert(&Entry{
		Locator: "acme/logging@2.1.0",
		Version: "2.1.0",
		Digest:  "sha256:bbbb",
	})
	return l
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := sampleLock().Marshal()
	require.NoError(t, err)

	// insert in the opposite order
	reordered := New()
	for i := len(sampleLock().Components) - 1; i >= 0; i-- {
		reordered.Upsert(sampleLock().Components[i])
	}
	second, err := reordered.Marshal()
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestReadContentsRoundTrip(t *testing.T) {
	data, err := sampleLock().Marshal()
	require.NoError(t, err)

	l, err := ReadContents(data)
	require.NoError(t, err)
	require.Len(t, l.Components, 2)

	e, ok := l.Lookup("github:acme/jwt-auth@v1.2.3")
	require.True(t, ok)
	assert.Equal(t, "v1.2.3", e.Version)
	assert.Equal(t, "sha256:aaaa", e.Digest)
	assert.Len(t, e.Dependencies, 2)
}

func TestReadContentsRejectsWrongKind(t *testing.T) {
	_, err := ReadContents([]byte("apiVersion: forge.build/v1\nkind: Component\ncomponents: []\n"))
	assert.ErrorIs(t, err, ErrInvalidLock)
}

func TestUpsertReplaces(t *testing.T) {
	l := sampleLock()
	l.Upsert(&Entry{Locator: "acme/logging@2.1.0", Version: "2.1.0", Digest: "sha256:cccc"})

	require.Len(t, l.Components, 2)
	e, ok := l.Lookup("acme/logging@2.1.0")
	require.True(t, ok)
	assert.Equal(t, "sha256:cccc", e.Digest)
}

func TestInSync(t *testing.T) {
	l := sampleLock()
	assert.True(t, l.InSync(sampleLock()))

	extra := sampleLock()
	extra.Upsert(&Entry{Locator: "acme/new@1.0.0", Version: "1.0.0"})
	assert.False(t, l.InSync(extra))

	changedDigest := sampleLock()
	changedDigest.Components[0].Digest = "sha256:dddd"
	assert.False(t, l.InSync(changedDigest))

	// an empty digest on either side is not a disagreement
	noDigest := sampleLock()
	noDigest.Components[0].Digest = ""
	assert.True(t, l.InSync(noDigest))
}

func TestLockerRegularWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	locker := NewLocker(dir, Regular)

	require.NoError(t, locker.Save(sampleLock()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the committed lockfile may remain")
	assert.Equal(t, forgeconfig.ForgeLockFileName, entries[0].Name())

	loaded, err := locker.Load()
	require.NoError(t, err)
	assert.True(t, loaded.InSync(sampleLock()))
}

func TestLockerRewriteIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	locker := NewLocker(dir, Regular)
	path := filepath.Join(dir, forgeconfig.ForgeLockFileName)

	require.NoError(t, locker.Save(sampleLock()))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, locker.Save(sampleLock()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestLockerLoadMissingFile(t *testing.T) {
	locker := NewLocker(t.TempDir(), Regular)
	l, err := locker.Load()
	require.NoError(t, err)
	assert.Empty(t, l.Components)
}

func TestLockerCheckOnly(t *testing.T) {
	dir := t.TempDir()

	// no lockfile at all is out of sync
	checker := NewLocker(dir, CheckOnly)
	assert.ErrorIs(t, checker.Save(sampleLock()), ErrLockfileOutOfSync)

	require.NoError(t, NewLocker(dir, Regular).Save(sampleLock()))
	assert.NoError(t, checker.Save(sampleLock()))

	drifted := sampleLock()
	drifted.Upsert(&Entry{Locator: "acme/new@1.0.0", Version: "1.0.0"})
	assert.ErrorIs(t, checker.Save(drifted), ErrLockfileOutOfSync)

	// CheckOnly never writes
	data, err := os.ReadFile(filepath.Join(dir, forgeconfig.ForgeLockFileName))
	require.NoError(t, err)
	l, err := ReadContents(data)
	require.NoError(t, err)
	assert.Len(t, l.Components, 2)
}
