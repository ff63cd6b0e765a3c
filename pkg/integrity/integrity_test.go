// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package integrity

import (
	"strings"
	"testing"

	"forge.build/x/forge/pkg/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *component.Component {
	return &component.Component{
		Files: []component.File{
			{Path: "component.yaml", Data: []byte("name: x\n")},
			{Path: "templates/a.tmpl", Data: []byte("hello")},
		},
	}
}

func TestDigestIsStable(t *testing.T) {
	d1 := Digest(fixture())

	// file order must not matter
	shuffled := fixture()
	shuffled.Files[0], shuffled.Files[1] = shuffled.Files[1], shuffled.Files[0]
	d2 := Digest(shuffled)

	assert.Equal(t, d1, d2)
	assert.True(t, strings.HasPrefix(d1, "sha256:"))
}

func TestDigestSeesEveryByte(t *testing.T) {
	base := Digest(fixture())

	flipped := fixture()
	flipped.Files[1].Data = []byte("hellO")
	assert.NotEqual(t, base, Digest(flipped))

	renamed := fixture()
	renamed.Files[1].Path = "templates/b.tmpl"
	assert.NotEqual(t, base, Digest(renamed))

	dropped := fixture()
	dropped.Files = dropped.Files[:1]
	assert.NotEqual(t, base, Digest(dropped))
}

// Path and data lengths are framed, so shifting a byte across the
// path/data boundary changes the digest.
func TestDigestFraming(t *testing.T) {
	a := &component.Component{Files: []component.File{{Path: "ab", Data: []byte("c")}}}
	b := &component.Component{Files: []component.File{{Path: "a", Data: []byte("bc")}}}
	assert.NotEqual(t, Digest(a), Digest(b))
}

func TestVerify(t *testing.T) {
	c := fixture()
	expected := Digest(fixture())

	require.NoError(t, Verify(c, expected))
	assert.Equal(t, expected, c.Digest)
}

func TestVerifyFirstInstallRecords(t *testing.T) {
	c := fixture()
	require.NoError(t, Verify(c, ""))
	assert.NotEmpty(t, c.Digest)
}

func TestVerifyMismatch(t *testing.T) {
	c := fixture()
	err := Verify(c, "sha256:deadbeef")

	assert.ErrorIs(t, err, ErrIntegrity)
	var mismatch *DigestMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "sha256:deadbeef", mismatch.Expected)
	assert.Empty(t, c.Digest, "a failed verification must not stamp the component")
}
