package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlManifest = `
documents:
  - file_name: math-5.pdf
    title: Mathematics 5
    grade: 5
    subject: math
    total_pages: 180
    file_size_mb: 8.2
    chapters:
      - number: 1
        title: Fractions
        topics: [numerator, denominator]
        start_page: 1
        end_page: 20
        chunks:
          - content: A fraction has a numerator and a denominator.
            content_type: text
            page_number: 2
          - content: "1/2 + 1/4 = 3/4"
            content_type: formula
            token_count: 9
      - number: 2
        title: Decimals
  - file_name: bio-7.pdf
    title: Biology 7
`

func TestParse_DocumentsMapping(t *testing.T) {
	docs, err := Parse([]byte(yamlManifest))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	math := docs[0]
	assert.Equal(t, "math-5.pdf", math.FileName)
	assert.Equal(t, 5, math.Grade)
	assert.InDelta(t, 8.2, math.FileSizeMB, 1e-9)
	require.Len(t, math.Chapters, 2)
	assert.Equal(t, []string{"numerator", "denominator"}, math.Chapters[0].Topics)
	require.Len(t, math.Chapters[0].Chunks, 2)
	assert.Equal(t, "formula", math.Chapters[0].Chunks[1].ContentType)
	assert.Equal(t, 9, math.Chapters[0].Chunks[1].TokenCount)
	assert.Empty(t, math.Chapters[1].Chunks)

	assert.Equal(t, "bio-7.pdf", docs[1].FileName)
}

func TestParse_BareList(t *testing.T) {
	docs, err := Parse([]byte("- file_name: a.pdf\n  title: A\n- file_name: b.pdf\n  title: B\n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b.pdf", docs[1].FileName)
}

func TestParse_JSON(t *testing.T) {
	data := `{"documents": [{"file_name": "a.pdf", "title": "A", "grade": 3,
  "chapters": [{"number": 1, "title": "One", "chunks": [{"content": "hello", "page_number": 4}]}]}]}`

	docs, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 3, docs[0].Grade)
	assert.Equal(t, 4, docs[0].Chapters[0].Chunks[0].PageNumber)
}

func TestParse_MultiDocumentStream(t *testing.T) {
	data := "- file_name: a.pdf\n  title: A\n" +
		"---\n" +
		"documents:\n  - file_name: b.pdf\n    title: B\n  - file_name: c.pdf\n    title: C\n" +
		"---\n" +
		"---\n" +
		"- file_name: d.pdf\n  title: D\n"

	docs, err := Parse([]byte(data))
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		names = append(names, d.FileName)
	}
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"}, names)
}

func TestParse_MultiDocumentStreamError(t *testing.T) {
	data := "- file_name: a.pdf\n  title: A\n---\n- file_name: b.pdf\n  titel: B\n"

	_, err := Parse([]byte(data))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidManifest))
	assert.Contains(t, err.Error(), "part 2")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"empty input", "", ErrEmptyManifest},
		{"empty list", "documents: []\n", ErrEmptyManifest},
		{"mapping without documents", "{}\n", ErrEmptyManifest},
		{"scalar", "just text\n", ErrInvalidManifest},
		{"unknown field", "- file_name: a.pdf\n  titel: A\n", ErrInvalidManifest},
		{"wrong type", "- file_name: a.pdf\n  grade: fifth\n", ErrInvalidManifest},
		{"null document", "documents:\n  - file_name: a.pdf\n  -\n", ErrInvalidManifest},
		{"malformed yaml", "documents: [\n", ErrInvalidManifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "books.yaml", yamlManifest)

	docs, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoad_FileErrorNamesPath(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.yaml", "- file_name: a.pdf\n  bogus: 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.yaml")
	assert.True(t, errors.Is(err, ErrInvalidManifest))
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.json", `[{"file_name": "b.pdf", "title": "B"}]`)
	writeFile(t, dir, "a.yml", "- file_name: a.pdf\n  title: A\n")
	writeFile(t, dir, "notes.txt", "not a manifest")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	docs, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].FileName)
	assert.Equal(t, "b.pdf", docs[1].FileName)
}

func TestLoad_EmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.True(t, errors.Is(err, ErrNoManifests))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadAll_KeepsArgumentOrder(t *testing.T) {
	dir := t.TempDir()
	second := writeFile(t, dir, "a.yaml", "- file_name: second.pdf\n  title: S\n")
	first := writeFile(t, dir, "b.yaml", "- file_name: first.pdf\n  title: F\n")

	docs, err := LoadAll([]string{first, second})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "first.pdf", docs[0].FileName)
	assert.Equal(t, "second.pdf", docs[1].FileName)
}

func TestLoadAll_NoPaths(t *testing.T) {
	_, err := LoadAll(nil)
	assert.True(t, errors.Is(err, ErrEmptyManifest))
}
