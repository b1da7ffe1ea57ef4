package detect

import (
	"fmt"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	readability "github.com/go-shiori/go-readability"

	"docmind/internal/docmodel"
)

// extractHTML strips boilerplate via go-readability and converts the main
// article to Markdown, exactly the pipeline the teacher's web fetcher uses
// (internal/tools/web/fetch.go) for PreferReadable HTML responses.
func extractHTML(in Input) (Result, error) {
	raw, err := decodeBestEffort(in.Bytes)
	if err != nil {
		return Result{}, err
	}

	articleHTML := raw
	var title string
	base, _ := url.Parse("about:blank")
	if art, rerr := readability.FromReader(strings.NewReader(raw), base); rerr == nil && strings.TrimSpace(art.Content) != "" {
		articleHTML = art.Content
		title = strings.TrimSpace(art.Title)
	}

	md, err := htmltomarkdown.ConvertString(articleHTML)
	if err != nil {
		return Result{}, fmt.Errorf("html to markdown: %w", err)
	}
	md = strings.TrimSpace(md)
	if title != "" && !strings.HasPrefix(md, "# ") {
		md = "# " + title + "\n\n" + md
	}

	blocks := MarkdownBlocks(md)
	if title != "" {
		blocks = append([]docmodel.Block{{Kind: docmodel.BlockHeading, Level: 1, Text: title}}, trimLeadingHeading(blocks)...)
	}
	return Result{Text: md, Blocks: blocks}, nil
}

// trimLeadingHeading drops a first-block heading so a synthesized title
// heading is never duplicated when the converted Markdown already opens
// with one.
func trimLeadingHeading(blocks []docmodel.Block) []docmodel.Block {
	if len(blocks) > 0 && blocks[0].Kind == docmodel.BlockHeading && blocks[0].Level == 1 {
		return blocks[1:]
	}
	return blocks
}
