// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package manifest reads the document descriptors produced by the parsing
// stage. A manifest is YAML or JSON, either a mapping with a documents key or
// a bare list of documents:
//
//	documents:
//	  - file_name: math-5.pdf
//	    title: Mathematics 5
//	    chapters:
//	      - number: 1
//	        title: Fractions
//	        chunks:
//	          - content: A fraction has a numerator and a denominator.
//
// Unknown keys are rejected so that typos do not silently drop data.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/poiesic/lectern/core"
	"gopkg.in/yaml.v3"
)

type manifestFile struct {
	Documents []*core.Document `yaml:"documents"`
}

// Parse decodes one manifest. JSON input is accepted as YAML. A YAML stream
// of several documents separated by "---" yields the documents of every part,
// in stream order; empty parts are ignored.
func Parse(data []byte) ([]*core.Document, error) {
	// nodes reports the shape of each part; dec decodes the same part strictly.
	nodes := yaml.NewDecoder(bytes.NewReader(data))
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var docs []*core.Document
	for part := 0; ; part++ {
		var root yaml.Node
		if err := nodes.Decode(&root); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}

		parsed, err := decodePart(dec, &root)
		if err != nil {
			if part > 0 {
				return nil, fmt.Errorf("%w (part %d)", err, part+1)
			}
			return nil, err
		}
		docs = append(docs, parsed...)
	}

	for i, doc := range docs {
		if doc == nil {
			return nil, fmt.Errorf("%w: document %d is empty", ErrInvalidManifest, i)
		}
	}
	if len(docs) == 0 {
		return nil, ErrEmptyManifest
	}
	return docs, nil
}

// decodePart decodes the next part of dec, whose node tree is root.
func decodePart(dec *yaml.Decoder, root *yaml.Node) ([]*core.Document, error) {
	kind := yaml.Kind(0)
	if len(root.Content) > 0 {
		kind = root.Content[0].Kind
		if kind == yaml.ScalarNode && root.Content[0].Tag == "!!null" {
			kind = 0
		}
	}

	var docs []*core.Document
	var err error
	switch kind {
	case yaml.SequenceNode:
		err = dec.Decode(&docs)
	case yaml.MappingNode:
		var mf manifestFile
		err = dec.Decode(&mf)
		docs = mf.Documents
	case 0:
		var skip any
		err = dec.Decode(&skip)
	default:
		return nil, fmt.Errorf("%w: expected a mapping or a list at the top level", ErrInvalidManifest)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return docs, nil
}

// Load reads the manifest at path. If path is a directory, every .yaml, .yml
// and .json file directly inside it is read in lexical order.
func Load(path string) ([]*core.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return loadFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isManifestFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoManifests, path)
	}
	slices.Sort(files)
	return LoadAll(files)
}

// LoadAll loads every path and concatenates the documents in argument order.
func LoadAll(paths []string) ([]*core.Document, error) {
	var docs []*core.Document
	for _, p := range paths {
		loaded, err := Load(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	if len(docs) == 0 {
		return nil, ErrEmptyManifest
	}
	return docs, nil
}

func loadFile(path string) ([]*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	docs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

func isManifestFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}
