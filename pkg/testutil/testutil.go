// Copyright (c) 2017-2025 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"forge.build/x/forge/pkg/component"
	"forge.build/x/forge/pkg/fetcher"
	"forge.build/x/forge/pkg/forgeconfig"
	"forge.build/x/forge/pkg/manifest"
	"forge.build/x/forge/pkg/schema"
	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"
)

// TestdataPath gives absolute path within the common 'testdata'
func TestdataPath(t *testing.T, path ...string) string {
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	p := []string{filepath.Dir(file), "testdata"}
	p = append(p, path...)
	return filepath.Join(p...)
}

// FakeRegistry serves the component registry's read surface from memory:
// <path>/<version>/component.yaml, <path>/<version>/component.tar.gz and
// <path>/index.yaml.
type FakeRegistry struct {
	t *testing.T

	mu    sync.Mutex
	files map[string][]byte

	Server *httptest.Server
	// Requests counts hits per request path.
	Requests map[string]int
}

func NewFakeRegistry(t *testing.T) *FakeRegistry {
	r := &FakeRegistry{
		t:        t,
		files:    map[string][]byte{},
		Requests: map[string]int{},
	}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Server.Close)
	return r
}

// Host returns the host:port to set as the registry in a test config.
func (r *FakeRegistry) Host() string {
	return strings.TrimPrefix(r.Server.URL, "http://")
}

// Config builds a config pointed at the fake registry with an isolated home
// directory. Insecure is on since httptest serves plain http.
func (r *FakeRegistry) Config(t *testing.T, apiVersion string) *forgeconfig.Config {
	t.Setenv(forgeconfig.ForgeHomeEnvVar, t.TempDir())
	t.Setenv(forgeconfig.RegistryEnvVar, r.Host())
	t.Setenv(forgeconfig.AllowInsecureRegistryEnvVar, "true")
	t.Setenv(forgeconfig.APIVersionEnvVar, apiVersion)
	t.Setenv(forgeconfig.RegistryAuthPathEnvVar, filepath.Join(t.TempDir(), "no-netrc"))

	config, err := forgeconfig.Get()
	require.NoError(t, err)
	require.NoError(t, config.EnsureDirs())
	return config
}

// PublishComponent stores a component's manifest, archive and version index
// under the registry path for each given version. The manifest served per
// version is rewritten to carry that version so fixtures need only one file
// set.
func (r *FakeRegistry) PublishComponent(path string, files []component.File, versions ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range versions {
		versioned := withManifestVersion(r.t, files, v)
		archive, err := fetcher.PackArchive(versioned)
		require.NoError(r.t, err)

		c := component.Component{Files: versioned}
		mf, ok := c.Lookup(manifest.Filename)
		require.True(r.t, ok, "component fixture must carry a %s", manifest.Filename)

		r.files[fmt.Sprintf("/%s/%s/%s", path, v, manifest.Filename)] = mf.Data
		r.files[fmt.Sprintf("/%s/%s/component.tar.gz", path, v)] = archive

		// latest serves the last published version
		r.files[fmt.Sprintf("/%s/latest/%s", path, manifest.Filename)] = mf.Data
		r.files[fmt.Sprintf("/%s/latest/component.tar.gz", path)] = archive
	}

	index, err := yaml.Marshal(map[string][]string{"versions": versions})
	require.NoError(r.t, err)
	r.files["/"+path+"/index.yaml"] = index
}

func (r *FakeRegistry) serve(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests[req.URL.Path]++

	body, ok := r.files[req.URL.Path]
	if !ok {
		http.NotFound(w, req)
		return
	}
	if req.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(body)
}

func withManifestVersion(t *testing.T, files []component.File, version string) []component.File {
	out := make([]component.File, len(files))
	copy(out, files)
	for i, f := range out {
		if f.Path != manifest.Filename {
			continue
		}
		m, err := manifest.ReadContents(f.Data)
		require.NoError(t, err)
		m.Version = version
		data, err := yaml.Marshal(m)
		require.NoError(t, err)
		out[i] = component.File{Path: f.Path, Data: data}
	}
	return out
}

// ManifestYAML renders a minimal valid component manifest for fixtures.
func ManifestYAML(t *testing.T, name, version string, deps map[string]string, minAPI, maxAPI string) []byte {
	m := manifest.Manifest{
		ManifestMeta: schema.ManifestMeta{
			APIVersion: manifest.ManifestAPIVersion,
			Kind:       manifest.ManifestKind,
		},
		Name:         name,
		Version:      version,
		Dependencies: deps,
		Compatibility: &manifest.Compatibility{
			APIVersion: manifest.ManifestAPIVersion,
			MinVersion: minAPI,
			MaxVersion: maxAPI,
		},
	}
	data, err := yaml.Marshal(&m)
	require.NoError(t, err)
	return data
}

// ComponentFiles builds a file set holding a manifest plus the given extra
// files, keyed path to contents.
func ComponentFiles(t *testing.T, name, version string, deps map[string]string, extra map[string]string) []component.File {
	files := []component.File{
		{Path: manifest.Filename, Data: ManifestYAML(t, name, version, deps, "0.1.0", "0.2.0")},
	}
	for path, data := range extra {
		files = append(files, component.File{Path: path, Data: []byte(data)})
	}
	c := component.Component{Files: files}
	c.SortFiles()
	return c.Files
}
