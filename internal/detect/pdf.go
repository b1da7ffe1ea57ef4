package detect

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"docmind/internal/docmodel"
)

// extractPDF reads the text layer page by page using visual line ordering,
// grounded on the pack's extractPageTextOrdered technique (bbiangul-go-reason
// parser/pdf.go): content-stream text runs are grouped into lines by Y
// proximity, then the lines are sorted top-to-bottom so headings precede the
// body they label even when the content stream interleaves them.
func extractPDF(in Input) (Result, error) {
	r := bytes.NewReader(in.Bytes)
	reader, err := pdf.NewReader(r, int64(len(in.Bytes)))
	if err != nil {
		return Result{}, fmt.Errorf("opening PDF: %w", err)
	}

	total := reader.NumPage()
	var (
		sb      strings.Builder
		blocks  []docmodel.Block
		pageMap []docmodel.PageMarker
	)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := extractPageTextOrdered(page)
		if perr != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pageMap = append(pageMap, docmodel.PageMarker{ByteOffset: sb.Len(), Page: i})
		sb.WriteString(text)
		sb.WriteString("\n\n")
		for _, para := range strings.Split(text, "\n") {
			para = strings.TrimSpace(para)
			if para == "" {
				continue
			}
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockParagraph, Text: para})
		}
	}

	full := strings.TrimSpace(sb.String())
	if full == "" {
		return Result{}, fmt.Errorf("no extractable text layer")
	}
	return Result{Text: full, Blocks: blocks, PageMap: pageMap}, nil
}

// extractPageTextOrdered groups a page's content-stream text runs into
// visual lines by Y proximity, then orders those lines top-to-bottom.
func extractPageTextOrdered(page pdf.Page) (string, error) {
	content := page.Content()
	if len(content.Text) == 0 {
		return page.GetPlainText(nil)
	}

	const lineTolerance = 3.0
	type visualLine struct {
		y   float64
		buf strings.Builder
	}
	var lines []*visualLine
	var cur *visualLine
	for _, t := range content.Text {
		if cur == nil || math.Abs(t.Y-cur.y) > lineTolerance {
			lines = append(lines, &visualLine{y: t.Y})
			cur = lines[len(lines)-1]
		}
		cur.buf.WriteString(t.S)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].y > lines[j].y })

	var parts []string
	for _, l := range lines {
		if s := strings.TrimSpace(l.buf.String()); s != "" {
			parts = append(parts, s)
		}
	}
	result := strings.Join(parts, "\n")
	if strings.TrimSpace(result) == "" {
		return page.GetPlainText(nil)
	}
	return result, nil
}
