// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/schema"
	"forge.build/x/forge/pkg/utils"
	"github.com/goccy/go-yaml"
)

const (
	entryKind       = "CacheEntry"
	entryAPIVersion = schema.APIGroup + "/v1"

	entryFilename = "entry.yaml"
	contentDir    = "content"
)

// entryMeta is the bookkeeping document committed next to an entry's content.
type entryMeta struct {
	schema.ManifestMeta `yaml:",inline"`
	Key                 string `yaml:"key"`
	Digest              string `yaml:"digest"`
}

// DirStore is the persistent on-disk store. Entries live under
// <root>/<sha256(key)> so arbitrary locator characters never reach the
// filesystem. A write happens into a temp sibling directory and is committed
// with a single rename, guarded by a per-key file lock; readers can only ever
// observe a fully committed entry.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := utils.EnsureDirs(root, filepath.Join(root, "locks")); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCache, err.Error())
	}
	return &DirStore{root: root}, nil
}

func (s *DirStore) Put(ctx context.Context, key string, c *component.Component) error {
	hash := keyHash(key)
	dest := filepath.Join(s.root, hash)

	return utils.WithFileLock(ctx, s.lockPath(hash), func() error {
		ok, err := utils.DirExists(dest)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}
		if ok {
			// first committed entry wins
			return nil
		}

		tmp, err := os.MkdirTemp(s.root, "tmp-"+hash+"-")
		if err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		if err := component.WriteFileSet(filepath.Join(tmp, contentDir), c.Files); err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}

		meta := entryMeta{
			ManifestMeta: schema.ManifestMeta{APIVersion: entryAPIVersion, Kind: entryKind},
			Key:          key,
			Digest:       c.Digest,
		}
		data, err := yaml.Marshal(meta)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}
		if err := os.WriteFile(filepath.Join(tmp, entryFilename), data, 0644); err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}

		if err := os.Rename(tmp, dest); err != nil {
			return fmt.Errorf("%w: %s", ErrCache, err.Error())
		}
		return nil
	})
}

func (s *DirStore) Get(_ context.Context, key string) (*component.Component, bool, error) {
	dir := filepath.Join(s.root, keyHash(key))

	data, err := os.ReadFile(filepath.Join(dir, entryFilename))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrCache, err.Error())
	}

	var meta entryMeta
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, false, fmt.Errorf("%w: corrupt entry for %s: %s", ErrCache, key, err.Error())
	}
	expected := schema.ManifestMeta{APIVersion: entryAPIVersion, Kind: entryKind}
	if err := expected.ValidateSchema(meta.ManifestMeta); err != nil {
		return nil, false, fmt.Errorf("%w: corrupt entry for %s: %s", ErrCache, key, err.Error())
	}

	c, err := component.FromDir(filepath.Join(dir, contentDir))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrCache, err.Error())
	}
	c.Digest = meta.Digest
	return c, true, nil
}

func (s *DirStore) lockPath(hash string) string {
	return filepath.Join(s.root, "locks", hash+".lock")
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

var _ Store = (*DirStore)(nil)
