// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package golden runs scripted operation corpora against golden outputs.
//
// A corpus is a directory of YAML scripts. Each script is decoded into a
// caller-chosen type and run; the text the run produces is compared with the
// file of the same name plus a ".golden" suffix.
package golden

import (
	"bytes"
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// RefreshEnv is the environment variable consulted when [Corpus.Refresh] is
// unset. Its value is a glob over script paths; matching golden files are
// rewritten instead of checked.
const RefreshEnv = "SMALLBUF_REFRESH"

// Corpus is a directory of scripts of type S. The zero value, plus Run, is
// ready to use.
type Corpus[S any] struct {
	// The directory holding the scripts, relative to the file that calls
	// [Corpus.Test]. Defaults to "testdata".
	Root string

	// Which scripts to run, as a doublestar glob relative to Root. Defaults
	// to "**/*.yaml".
	Glob string

	// The environment variable that selects scripts to refresh. Defaults to
	// [RefreshEnv].
	Refresh string

	// Run executes one script and returns its output.
	Run func(t *testing.T, script S) string
}

// Test runs every script in the corpus as a subtest.
func (c Corpus[S]) Test(t *testing.T) {
	t.Helper()

	root := filepath.Join(callerDir(), cmp.Or(c.Root, "testdata"))
	glob := cmp.Or(c.Glob, "**/*.yaml")
	paths, err := doublestar.Glob(os.DirFS(root), glob, doublestar.WithFilesOnly())
	if err != nil {
		t.Fatalf("golden: bad glob %q: %v", glob, err)
	}
	if len(paths) == 0 {
		t.Fatalf("golden: no scripts in %q match %q", root, glob)
	}

	refresh := os.Getenv(cmp.Or(c.Refresh, RefreshEnv))
	if refresh != "" {
		if !doublestar.ValidatePattern(refresh) {
			t.Fatalf("golden: invalid glob in %s: %q", cmp.Or(c.Refresh, RefreshEnv), refresh)
		}
		t.Logf("golden: refreshing scripts matching %q", refresh)
	}

	for _, name := range paths {
		t.Run(strings.TrimSuffix(name, filepath.Ext(name)), func(t *testing.T) {
			path := filepath.Join(root, filepath.FromSlash(name))
			script, err := Load[S](path)
			if err != nil {
				t.Fatal(err)
			}
			got := c.Run(t, script)

			goldenPath := path + ".golden"
			if ok, _ := doublestar.Match(refresh, name); ok {
				if err := os.WriteFile(goldenPath, []byte(got), 0o644); err != nil { //nolint:gosec // Test data.
					t.Fatalf("golden: %v", err)
				}
				// A refreshed run never counts as a pass.
				t.Errorf("golden: rewrote %s", goldenPath)
				return
			}

			want, err := os.ReadFile(goldenPath)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("golden: %v", err)
			}
			if diff := Diff(string(want), got); diff != "" {
				t.Errorf("golden: output mismatch for %s:\n%s", name, diff)
			}
		})
	}
}

// Load decodes the script at path. Unknown fields are an error.
func Load[S any](path string) (S, error) {
	var script S
	data, err := os.ReadFile(path)
	if err != nil {
		return script, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&script); err != nil {
		return script, &LoadError{Path: path, Err: err}
	}
	return script, nil
}

// LoadError is returned by [Load] when a script is malformed.
type LoadError struct {
	Path string
	Err  error
}

// Error implements [error].
func (e *LoadError) Error() string {
	return "golden: " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying decoding error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Diff returns a unified diff from want to got, or "" if they are equal.
func Diff(want, got string) string {
	if want == got {
		return ""
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

// callerDir returns the directory of the file that called Corpus.Test.
func callerDir() string {
	_, file, _, ok := runtime.Caller(2)
	if !ok {
		panic("golden: could not determine test file's directory")
	}
	return filepath.Dir(file)
}
