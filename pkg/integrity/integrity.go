// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"forge.build/x/forge/pkg/component"
)

var ErrIntegrity = fmt.Errorf("component integrity violation")

// DigestMismatchError means a previously recorded digest for a
// (locator, version) pair disagrees with freshly fetched content. This is a
// hard failure: a mutable git ref or a compromised mirror is serving
// different bytes under the same version.
type DigestMismatchError struct {
	Expected string
	Actual   string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s: digest mismatch: expected %s, got %s", ErrIntegrity.Error(), e.Expected, e.Actual)
}

func (e *DigestMismatchError) Unwrap() error {
	return ErrIntegrity
}

const prefix = "sha256:"

// Digest hashes the component's full file set in canonical (sorted by
// relative path) order. Each entry is framed as
// uvarint(len(path)) path uvarint(len(data)) data, so two different file
// sets can never concatenate to the same byte stream.
func Digest(c *component.Component) string {
	c.SortFiles()

	h := sha256.New()
	var frame [binary.MaxVarintLen64]byte
	for _, f := range c.Files {
		n := binary.PutUvarint(frame[:], uint64(len(f.Path)))
		h.Write(frame[:n])
		h.Write([]byte(f.Path))
		n = binary.PutUvarint(frame[:], uint64(len(f.Data)))
		h.Write(frame[:n])
		h.Write(f.Data)
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Verify checks the component against expected and stamps the computed
// digest onto it. An empty expected digest means this is the first install
// of the version: the fresh digest is recorded, never rejected.
func Verify(c *component.Component, expected string) error {
	actual := Digest(c)
	if expected != "" && expected != actual {
		return &DigestMismatchError{Expected: expected, Actual: actual}
	}
	c.Digest = actual
	return nil
}
