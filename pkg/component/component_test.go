// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package component

import (
	"os"
	"path/filepath"
	"testing"

	"forge.build/x/forge/pkg/manifest"
	manifesttestdata "forge.build/x/forge/pkg/manifest/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSetRoundTrip(t *testing.T) {
	files := []File{
		{Path: manifest.Filename, Data: manifesttestdata.Valid},
		{Path: "templates/middleware.tmpl", Data: []byte("{{ . }}")},
		{Path: "hooks/post-install.sh", Data: []byte("#!/bin/sh\n")},
	}

	dir := t.TempDir()
	require.NoError(t, WriteFileSet(dir, files))

	c, err := FromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "jwt-auth", c.Manifest.Name)

	// ReadFileSet sorts by path
	assert.Equal(t, manifest.Filename, c.Files[0].Path)
	assert.Equal(t, "hooks/post-install.sh", c.Files[1].Path)
	assert.Equal(t, "templates/middleware.tmpl", c.Files[2].Path)

	f, ok := c.Lookup("templates/middleware.tmpl")
	require.True(t, ok)
	assert.Equal(t, []byte("{{ . }}"), f.Data)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)
}

func TestReadFileSetSkipsGitMetadata(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), os.ModePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))

	files, err := ReadFileSet(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestSub(t *testing.T) {
	c := &Component{Files: []File{
		{Path: manifest.Filename, Data: manifesttestdata.Valid},
		{Path: "auth/" + manifest.Filename, Data: manifesttestdata.Valid},
		{Path: "auth/templates/login.tmpl", Data: []byte("login")},
		{Path: "billing/invoice.tmpl", Data: []byte("invoice")},
	}}

	sub, err := c.Sub("auth")
	require.NoError(t, err)
	assert.Equal(t, "jwt-auth", sub.Manifest.Name)
	require.Len(t, sub.Files, 2)

	// prefix stripped, sibling directories excluded
	f, ok := sub.Lookup("templates/login.tmpl")
	require.True(t, ok)
	assert.Equal(t, []byte("login"), f.Data)
	_, ok = sub.Lookup("billing/invoice.tmpl")
	assert.False(t, ok)

	// the receiver keeps its full file set
	assert.Len(t, c.Files, 4)

	_, err = c.Sub("billing")
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound, "a subpath without its own manifest is not a component")

	_, err = c.Sub("nope")
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
}

func TestFromDirWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main"), 0644))

	_, err := FromDir(dir)
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
}
