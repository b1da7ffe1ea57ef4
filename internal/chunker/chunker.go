// Package chunker implements the Chunker (C6): it walks a document's
// structural block stream and emits ordered, metadata-tagged chunks,
// grounded on the teacher's internal/rag/chunker markdownChunk heuristics
// (heading-boundary flushing, ~4-chars-per-token sizing) but generalized to
// honor the spec's hard invariants: tables and code are never split, and
// ignore-blocks are carried through untouched instead of being folded into
// prose.
package chunker

import (
	"strconv"
	"strings"

	"docmind/internal/docmodel"
)

// Options configures the token-target window (§4.6: "target of ≈512
// tokens, configurable 400-800").
type Options struct {
	TargetTokens int
	MinTokens    int
	MaxTokens    int
}

// DefaultOptions returns the spec's default sizing.
func DefaultOptions() Options {
	return Options{TargetTokens: 512, MinTokens: 400, MaxTokens: 800}
}

// EstimateTokens is the shared ~4-chars-per-token estimator. It must be
// monotonic in text length, which integer division by a constant trivially
// satisfies.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type sectionFrame struct {
	title string
}

// Chunk walks blocks and produces ordered chunks. doc carries the fields
// needed to stamp chunk metadata (doc id/type, enrichment, scores,
// content hash); blocks is the structural stream from C1.
func Chunk(doc docmodel.Document, blocks []docmodel.Block, opt Options) []docmodel.Chunk {
	if opt.TargetTokens <= 0 {
		opt = DefaultOptions()
	}

	var (
		chunks  []docmodel.Chunk
		stack   []sectionFrame
		ordinal int
		buf     strings.Builder
		bufKind docmodel.ChunkKind
	)

	sectionPath := func() []string {
		out := make([]string, len(stack))
		for i, f := range stack {
			out[i] = f.title
		}
		return out
	}

	emit := func(kind docmodel.ChunkKind, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		c := docmodel.Chunk{
			DocID:         doc.ID,
			Ordinal:       ordinal,
			Kind:          kind,
			SectionPath:   append([]string(nil), sectionPath()...),
			Text:          text,
			TokenEstimate: EstimateTokens(text),
		}
		c.Metadata = metadataFor(doc, c)
		chunks = append(chunks, c)
		ordinal++
	}

	flushAccum := func() {
		if buf.Len() > 0 {
			emit(bufKind, buf.String())
			buf.Reset()
			bufKind = ""
		}
	}

	accumKindFor := func(k docmodel.BlockKind) docmodel.ChunkKind {
		if k == docmodel.BlockList {
			return docmodel.ChunkList
		}
		return docmodel.ChunkParagraph
	}

	for _, b := range blocks {
		switch b.Kind {
		case docmodel.BlockHeading:
			flushAccum()
			level := b.Level
			if level <= 0 {
				level = 1
			}
			if level-1 < len(stack) {
				stack = stack[:level-1]
			}
			stack = append(stack, sectionFrame{title: b.Text})

		case docmodel.BlockTable:
			flushAccum()
			emit(docmodel.ChunkTable, renderTable(b.Rows))

		case docmodel.BlockCode:
			flushAccum()
			emit(docmodel.ChunkCode, b.Text)

		case docmodel.BlockIgnore:
			flushAccum()
			emit(docmodel.ChunkIgnored, b.Text)

		case docmodel.BlockParagraph, docmodel.BlockList:
			text := b.Text
			if b.Kind == docmodel.BlockList {
				text = strings.Join(b.Items, "\n")
			}
			kind := accumKindFor(b.Kind)
			if bufKind != "" && bufKind != kind {
				flushAccum()
			}
			bufKind = kind
			if buf.Len() > 0 {
				buf.WriteString("\n\n")
			}
			buf.WriteString(text)
			if EstimateTokens(buf.String()) >= opt.TargetTokens {
				flushAccum()
			}
		}
	}
	flushAccum()

	return chunks
}

func renderTable(rows [][]string) string {
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString("| ")
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteString(" |\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// metadataFor flattens the owning document's enrichment and score into the
// chunk's metadata map (§3 Chunk invariants: vocabulary lists rendered as
// comma-joined strings).
func metadataFor(doc docmodel.Document, c docmodel.Chunk) map[string]string {
	m := map[string]string{
		"doc_id":      doc.ID,
		"doc_type":    string(doc.Type),
		"chunk_type":  string(c.Kind),
		"sequence":    strconv.Itoa(c.Ordinal),
		"content_hash": doc.ContentHash,
		"quality":     strconv.FormatFloat(doc.Score.Quality, 'f', 4, 64),
		"signalness":  strconv.FormatFloat(doc.Score.Signalness, 'f', 4, 64),
	}
	if len(c.SectionPath) > 0 {
		m["section_title"] = c.SectionPath[len(c.SectionPath)-1]
	}
	m["topics"] = strings.Join(doc.Enrichment.Topics, ",")
	m["projects"] = strings.Join(doc.Enrichment.Projects, ",")
	m["places"] = strings.Join(doc.Enrichment.Places, ",")
	m["role_mentions"] = strings.Join(doc.Enrichment.RoleMentions, ",")
	return m
}
