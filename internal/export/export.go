// Package export implements Canonical Export (C13): for each indexed
// document, a Markdown artifact with a YAML-equivalent header preamble,
// a structured body, and an IGNORE-wrapped XRef block of entity
// wiki-links, plus idempotent entity stub files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"docmind/internal/docmodel"
)

// Options configures the export directory layout (§6: "canonical export
// directory ... configurable" between flat and type/date-nested layout).
type Options struct {
	RootDir string
	Flat    bool // true: YYYY-MM-DD__{type}__{slug}__{shortid}.md at RootDir root
}

// Result reports where the artifact and its entity stubs were written.
type Result struct {
	ArtifactPath string
	StubPaths    []string
}

// Export writes the canonical Markdown artifact and any new entity stub
// files for doc, returning the paths written.
func Export(doc docmodel.Document, opt Options) (Result, error) {
	if opt.RootDir == "" {
		opt.RootDir = "."
	}
	shortID := shortID(doc.ID)
	slug := slugify(doc.Enrichment.Title)
	dateStr := doc.CreatedAt.Format("2006-01-02")

	filename := fmt.Sprintf("%s__%s__%s__%s.md", dateStr, string(doc.Type), slug, shortID)
	var artifactDir string
	if opt.Flat {
		artifactDir = opt.RootDir
	} else {
		artifactDir = filepath.Join(opt.RootDir, string(doc.Type), dateStr)
	}
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("export: mkdir artifact dir: %w", err)
	}
	artifactPath := filepath.Join(artifactDir, filename)

	content := renderArtifact(doc)
	if err := os.WriteFile(artifactPath, []byte(content), 0o644); err != nil {
		return Result{}, fmt.Errorf("export: write artifact: %w", err)
	}

	stubPaths, err := writeEntityStubs(doc, opt)
	if err != nil {
		return Result{ArtifactPath: artifactPath}, err
	}
	return Result{ArtifactPath: artifactPath, StubPaths: stubPaths}, nil
}

func shortID(docID string) string {
	if len(docID) >= 4 {
		return docID[:4]
	}
	// Deterministic padding for short/degenerate ids, derived via the
	// same UUID namespace scheme used for vector-store point ids.
	u := uuid.NewSHA1(uuid.NameSpaceOID, []byte(docID))
	return strings.ReplaceAll(u.String(), "-", "")[:4]
}

var nonSlugRe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	if len(s) > 60 {
		s = strings.Trim(s[:60], "-")
	}
	return s
}

// renderArtifact builds the full Markdown document: YAML-equivalent
// header, title, summary, key-points body, then an IGNORE-wrapped XRef
// block so C6 never chunks the link list as content.
func renderArtifact(doc docmodel.Document) string {
	var sb strings.Builder

	sb.WriteString("---\n")
	writeYAMLField(&sb, "id", doc.ID)
	writeYAMLField(&sb, "type", string(doc.Type))
	writeYAMLField(&sb, "created_at", doc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"))
	writeYAMLField(&sb, "content_hash", doc.ContentHash)
	writeYAMLField(&sb, "title", doc.Enrichment.Title)
	writeYAMLField(&sb, "title_strategy", doc.Enrichment.TitleStrategy)
	writeYAMLField(&sb, "summary", doc.Enrichment.Summary)
	writeYAMLListField(&sb, "topics", doc.Enrichment.Topics)
	writeYAMLListField(&sb, "projects", doc.Enrichment.Projects)
	writeYAMLListField(&sb, "places", doc.Enrichment.Places)
	writeYAMLListField(&sb, "role_mentions", doc.Enrichment.RoleMentions)
	writeYAMLListField(&sb, "organizations", doc.Enrichment.Organizations)
	writeYAMLListField(&sb, "locations_free", doc.Enrichment.LocationsFree)
	writeYAMLListField(&sb, "dates", doc.Enrichment.Dates)
	writeYAMLListField(&sb, "suggested_tags", doc.Enrichment.SuggestedTags)
	writeYAMLFloatField(&sb, "confidence", doc.Enrichment.Confidence)
	writeYAMLFloatField(&sb, "quality_score", doc.Score.Quality)
	writeYAMLFloatField(&sb, "novelty_score", doc.Score.Novelty)
	writeYAMLFloatField(&sb, "actionability_score", doc.Score.Actionability)
	writeYAMLFloatField(&sb, "signalness", doc.Score.Signalness)
	writeYAMLField(&sb, "do_index", strconv.FormatBool(doc.DoIndex))
	writeYAMLField(&sb, "source_model_id", doc.Enrichment.SourceModelID)
	sb.WriteString(fmt.Sprintf("enrichment_version: %d\n", doc.Enrichment.SchemaVersion))
	if doc.Enrichment.EnrichmentDegraded {
		writeYAMLField(&sb, "enrichment_degraded", "true")
	}
	sb.WriteString("---\n\n")

	sb.WriteString("# " + doc.Enrichment.Title + "\n\n")
	if doc.Enrichment.Summary != "" {
		sb.WriteString(doc.Enrichment.Summary + "\n\n")
	}

	if len(doc.Enrichment.KeyPoints) > 0 {
		sb.WriteString("## Key points\n\n")
		for _, kp := range doc.Enrichment.KeyPoints {
			sb.WriteString("- " + kp + "\n")
		}
		sb.WriteString("\n")
	}

	xrefs := collectXRefs(doc.Enrichment)
	if len(xrefs) > 0 {
		sb.WriteString("<!-- IGNORE:xref-start -->\n## References\n\n")
		for _, x := range xrefs {
			sb.WriteString("- [[" + x + "]]\n")
		}
		sb.WriteString("<!-- IGNORE:xref-end -->\n")
	}

	return sb.String()
}

// collectXRefs produces one wiki-link target per referenced project,
// place, and role mention, in a stable order.
func collectXRefs(e docmodel.EnrichmentResult) []string {
	var out []string
	for _, p := range e.Projects {
		out = append(out, "refs/projects/"+slugify(p))
	}
	for _, p := range e.Places {
		out = append(out, "refs/places/"+slugify(p))
	}
	for _, r := range e.RoleMentions {
		out = append(out, "refs/roles/"+slugify(r))
	}
	return out
}

// writeEntityStubs creates (idempotently — skipped if already present)
// a back-link stub file per referenced entity.
func writeEntityStubs(doc docmodel.Document, opt Options) ([]string, error) {
	var paths []string
	write := func(category string, names []string) error {
		for _, name := range names {
			dir := filepath.Join(opt.RootDir, "refs", category)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("export: mkdir stub dir: %w", err)
			}
			path := filepath.Join(dir, slugify(name)+".md")
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
				continue
			}
			content := fmt.Sprintf("# %s\n\nBack-links: documents referring to this %s.\n\nQuery: doc_id where %s in entities(\"%s\")\n",
				name, strings.TrimSuffix(category, "s"), strings.TrimSuffix(category, "s"), name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("export: write stub: %w", err)
			}
			paths = append(paths, path)
		}
		return nil
	}
	if err := write("projects", doc.Enrichment.Projects); err != nil {
		return paths, err
	}
	if err := write("places", doc.Enrichment.Places); err != nil {
		return paths, err
	}
	if err := write("roles", doc.Enrichment.RoleMentions); err != nil {
		return paths, err
	}
	return paths, nil
}

var yamlStructuralRe = regexp.MustCompile(`[:#\[\]{}"'\n]|^\s|\s$|^$`)

func writeYAMLField(sb *strings.Builder, key, value string) {
	sb.WriteString(key + ": " + yamlScalar(value) + "\n")
}

func writeYAMLFloatField(sb *strings.Builder, key string, value float64) {
	sb.WriteString(fmt.Sprintf("%s: %.4f\n", key, value))
}

func writeYAMLListField(sb *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		sb.WriteString(key + ": []\n")
		return
	}
	sb.WriteString(key + ":\n")
	for _, v := range values {
		sb.WriteString("  - " + yamlScalar(v) + "\n")
	}
}

// yamlScalar quotes a string when it contains characters that would
// otherwise change its meaning in block-style YAML.
func yamlScalar(s string) string {
	if yamlStructuralRe.MatchString(s) {
		escaped := strings.ReplaceAll(s, `"`, `\"`)
		return `"` + escaped + `"`
	}
	return s
}
