// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"forge.build/x/forge/pkg/component"
)

// PackArchive renders a file set as the registry's component.tar.gz wire
// format. The registry side is out of scope here; this exists for the file
// scheme's producers and for test fixtures.
func PackArchive(files []component.File) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, f := range files {
		hdr := &tar.Header{
			Name: f.Path,
			Mode: 0644,
			Size: int64(len(f.Data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(f.Data); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnpackArchive reads a component.tar.gz into a file set. A non-empty
// subpath selects that subdirectory as the component root, re-rooting the
// returned paths. Entries escaping the root ("..", absolute paths) are
// rejected rather than silently dropped.
func UnpackArchive(data []byte, subpath string) ([]component.File, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = gz.Close() }()

	var files []component.File
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(hdr.Name)
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return nil, fmt.Errorf("archive entry %q escapes the component root", hdr.Name)
		}

		if subpath != "" {
			rel, ok := strings.CutPrefix(name, path.Clean(subpath)+"/")
			if !ok {
				continue
			}
			name = rel
		}

		contents, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		files = append(files, component.File{Path: name, Data: contents})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("archive holds no files under root %q", subpath)
	}
	return files, nil
}
