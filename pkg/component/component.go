// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package component

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"forge.build/x/forge/pkg/manifest"
)

// Component is an installed artifact: the manifest plus the full fetched
// file set, paths relative to the component root. The digest is filled in by
// the integrity verifier after fetch.
type Component struct {
	Manifest *manifest.Manifest
	Files    []File
	Digest   string
}

type File struct {
	Path string
	Data []byte
}

// SortFiles orders the file set by relative path. Digesting and on-disk
// layout both rely on this canonical order.
func (c *Component) SortFiles() {
	slices.SortFunc(c.Files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})
}

// Lookup returns the file at the given relative path.
func (c *Component) Lookup(path string) (File, bool) {
	for _, f := range c.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Sub returns the component rooted at subpath: the files under it with the
// prefix stripped, assembled around the subpath's own manifest. The receiver
// is left untouched; the returned component carries no digest.
func (c *Component) Sub(subpath string) (*Component, error) {
	prefix := strings.Trim(path.Clean(subpath), "/") + "/"

	var files []File
	for _, f := range c.Files {
		if strings.HasPrefix(f.Path, prefix) {
			files = append(files, File{Path: f.Path[len(prefix):], Data: f.Data})
		}
	}

	sub := &Component{Files: files}
	sub.SortFiles()

	mf, ok := sub.Lookup(manifest.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", manifest.ErrManifestNotFound, path.Join(subpath, manifest.Filename))
	}
	m, err := manifest.ReadContents(mf.Data)
	if err != nil {
		return nil, err
	}
	sub.Manifest = m
	return sub, nil
}

// FromDir loads a component rooted at dir. The manifest is read from the
// well-known component.yaml at the root; every regular file under dir becomes
// part of the file set.
func FromDir(dir string) (*Component, error) {
	files, err := ReadFileSet(dir)
	if err != nil {
		return nil, err
	}

	c := &Component{Files: files}
	mf, ok := c.Lookup(manifest.Filename)
	if !ok {
		return nil, fmt.Errorf("%w: %s", manifest.ErrManifestNotFound, filepath.Join(dir, manifest.Filename))
	}

	m, err := manifest.ReadContents(mf.Data)
	if err != nil {
		return nil, err
	}
	c.Manifest = m
	return c, nil
}

// ReadFileSet walks dir and loads every regular file, skipping VCS metadata.
// Paths use forward slashes regardless of platform so digests are portable.
func ReadFileSet(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b File) int {
		return strings.Compare(a.Path, b.Path)
	})
	return files, nil
}

// WriteFileSet materializes the file set under dir.
func WriteFileSet(dir string, files []File) error {
	for _, f := range files {
		dest := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
			return err
		}
		if err := os.WriteFile(dest, f.Data, 0644); err != nil {
			return err
		}
	}
	return nil
}
