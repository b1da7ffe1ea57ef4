package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/docmodel"
)

func testDoc() docmodel.Document {
	return docmodel.Document{
		ID:        "abcdef1234567890",
		Type:      docmodel.DocNote,
		CreatedAt: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		Enrichment: docmodel.EnrichmentResult{
			Title:         "Quarterly Budget: Review & Notes",
			Summary:       "Short summary.",
			Topics:        []string{"finance"},
			Projects:      []string{"Apollo Program"},
			Places:        []string{"Berlin"},
			RoleMentions:  []string{"Reviewer"},
			KeyPoints:     []string{"point one", "point two"},
			SuggestedTags: []string{"needs-review"},
		},
		Score: docmodel.ScoreBundle{Signalness: 0.72},
	}
}

func TestExport_FlatFilenameScheme(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := Export(testDoc(), Options{RootDir: dir, Flat: true})
	require.NoError(t, err)

	base := filepath.Base(res.ArtifactPath)
	assert.Equal(t, "2026-03-05__note__quarterly-budget-review-notes__abcd.md", base)
	assert.Equal(t, dir, filepath.Dir(res.ArtifactPath))

	data, err := os.ReadFile(res.ArtifactPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "id: abcdef1234567890")
	assert.Contains(t, content, `created_at: "2026-03-05T00:00:00Z"`)
	assert.Contains(t, content, "do_index: false")
	assert.Contains(t, content, "quality_score: 0.0000")
	assert.Contains(t, content, "novelty_score: 0.0000")
	assert.Contains(t, content, "actionability_score: 0.0000")
	assert.Contains(t, content, "# Quarterly Budget: Review & Notes")
	assert.Contains(t, content, "<!-- IGNORE:xref-start -->")
	assert.Contains(t, content, "[[refs/projects/apollo-program]]")
}

func TestExport_NestedLayoutWhenNotFlat(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	res, err := Export(testDoc(), Options{RootDir: dir, Flat: false})
	require.NoError(t, err)

	expectedDir := filepath.Join(dir, "note", "2026-03-05")
	assert.Equal(t, expectedDir, filepath.Dir(res.ArtifactPath))
}

func TestExport_EntityStubsAreIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	doc := testDoc()

	res1, err := Export(doc, Options{RootDir: dir, Flat: true})
	require.NoError(t, err)
	require.NotEmpty(t, res1.StubPaths)

	stubPath := filepath.Join(dir, "refs", "projects", "apollo-program.md")
	assert.FileExists(t, stubPath)

	original, err := os.ReadFile(stubPath)
	require.NoError(t, err)

	// Writing a second time must not alter pre-existing stub content.
	doc.ID = "ffffffff00000000"
	_, err = Export(doc, Options{RootDir: dir, Flat: true})
	require.NoError(t, err)

	again, err := os.ReadFile(stubPath)
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "hello-world", slugify("Hello, World!"))
	assert.Equal(t, "untitled", slugify(""))
	assert.Equal(t, "untitled", slugify("   "))
}

func TestYAMLScalar_QuotesStructuralCharacters(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "plain", yamlScalar("plain"))
	assert.Equal(t, `"has: colon"`, yamlScalar("has: colon"))
	assert.Equal(t, `""`, yamlScalar(""))
}
