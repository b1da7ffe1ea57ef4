package detect

import (
	"path/filepath"
	"regexp"
	"strings"

	"docmind/internal/docmodel"
)

// extractPlainText treats the whole input as one or more paragraphs split
// on blank lines.
func extractPlainText(in Input) (Result, error) {
	text, err := decodeBestEffort(in.Bytes)
	if err != nil {
		return Result{}, err
	}
	blocks := paragraphBlocks(text)
	return Result{Text: text, Blocks: blocks}, nil
}

func paragraphBlocks(text string) []docmodel.Block {
	var blocks []docmodel.Block
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockParagraph, Text: p})
	}
	return blocks
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	fenceRe    = regexp.MustCompile("^```\\s*([a-zA-Z0-9_+-]*)\\s*$")
	listItemRe = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	tableRowRe = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	ignoreOpen  = regexp.MustCompile(`(?i)^\s*<!--\s*IGNORE(?::[\w-]*-start)?\s*-->\s*$`)
	ignoreClose = regexp.MustCompile(`(?i)^\s*<!--\s*(?:/IGNORE|IGNORE:[\w-]*-end)\s*-->\s*$`)
)

// extractMarkdown walks Markdown line-by-line building the structural block
// stream the spec requires: headings, fenced code, tables, lists,
// paragraphs, and IGNORE-wrapped ignore blocks.
func extractMarkdown(in Input) (Result, error) {
	text, err := decodeBestEffort(in.Bytes)
	if err != nil {
		return Result{}, err
	}
	blocks := MarkdownBlocks(text)
	return Result{Text: text, Blocks: blocks}, nil
}

// MarkdownBlocks is exported so the chunker and export packages can reuse
// the same Markdown structural parser on export-time round trips.
func MarkdownBlocks(text string) []docmodel.Block {
	lines := strings.Split(text, "\n")
	var blocks []docmodel.Block
	var para []string
	var list []string
	var inIgnore bool
	var ignoreBuf []string

	flushPara := func() {
		if len(para) > 0 {
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockParagraph, Text: strings.Join(para, " ")})
			para = nil
		}
	}
	flushList := func() {
		if len(list) > 0 {
			items := make([]string, len(list))
			copy(items, list)
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockList, Items: items})
			list = nil
		}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]

		if ignoreOpen.MatchString(line) {
			flushPara()
			flushList()
			inIgnore = true
			ignoreBuf = nil
			i++
			continue
		}
		if inIgnore {
			if ignoreClose.MatchString(line) {
				blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockIgnore, Text: strings.Join(ignoreBuf, "\n")})
				inIgnore = false
				i++
				continue
			}
			ignoreBuf = append(ignoreBuf, line)
			i++
			continue
		}

		if m := fenceRe.FindStringSubmatch(line); m != nil {
			flushPara()
			flushList()
			lang := m[1]
			var code []string
			i++
			for i < len(lines) && !strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
				code = append(code, lines[i])
				i++
			}
			i++ // skip closing fence
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockCode, Language: lang, Text: strings.Join(code, "\n")})
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flushPara()
			flushList()
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockHeading, Level: len(m[1]), Text: strings.TrimSpace(m[2])})
			i++
			continue
		}

		if tableRowRe.MatchString(line) {
			flushPara()
			flushList()
			var rows [][]string
			for i < len(lines) && tableRowRe.MatchString(lines[i]) {
				rows = append(rows, splitTableRow(lines[i]))
				i++
			}
			// Drop a Markdown header-separator row ("---|---") if present.
			if len(rows) > 1 && isSeparatorRow(rows[1]) {
				rows = append(rows[:1], rows[2:]...)
			}
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockTable, Rows: rows})
			continue
		}

		if m := listItemRe.FindStringSubmatch(line); m != nil {
			flushPara()
			list = append(list, strings.TrimSpace(m[1]))
			i++
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flushPara()
			flushList()
			i++
			continue
		}
		flushList()
		para = append(para, trimmed)
		i++
	}
	flushPara()
	flushList()
	return blocks
}

func splitTableRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isSeparatorRow(row []string) bool {
	for _, c := range row {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// extractSourceCode wraps the whole file as a single fenced code block,
// inferring the language from the filename extension.
func extractSourceCode(in Input) (Result, error) {
	text, err := decodeBestEffort(in.Bytes)
	if err != nil {
		return Result{}, err
	}
	lang := strings.TrimPrefix(strings.ToLower(filepath.Ext(in.Filename)), ".")
	return Result{
		Text:   text,
		Blocks: []docmodel.Block{{Kind: docmodel.BlockCode, Language: lang, Text: text}},
	}, nil
}
