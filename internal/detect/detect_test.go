package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/docmodel"
)

func TestDetect_PDFMagicBytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatPDF, Detect(Input{Bytes: []byte("%PDF-1.4 rest of file")}))
}

func TestDetect_ZipOfficeContainerBySignature(t *testing.T) {
	t.Parallel()
	zipHeader := []byte{'P', 'K', 0x03, 0x04, 0, 0}
	assert.Equal(t, FormatOfficeXLS, Detect(Input{Bytes: zipHeader, Filename: "report.xlsx"}))
}

func TestDetect_EmailByHeaderShape(t *testing.T) {
	t.Parallel()
	raw := []byte("From: alice@example.com\nSubject: Hello\n\nBody text.")
	assert.Equal(t, FormatEmail, Detect(Input{Bytes: raw}))
}

func TestDetect_MarkdownByExtension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatMarkdown, Detect(Input{Bytes: []byte("# Title\n\nBody"), Filename: "notes.md"}))
}

func TestDetect_SourceCodeByExtension(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatSourceCode, Detect(Input{Bytes: []byte("package main\n"), Filename: "main.go"}))
}

func TestDetect_PlainTextFallback(t *testing.T) {
	t.Parallel()
	assert.Equal(t, FormatPlainText, Detect(Input{Bytes: []byte("just some ordinary prose"), Filename: "notes.txt"}))
}

func TestExtract_PlainTextSplitsOnBlankLines(t *testing.T) {
	t.Parallel()
	res := Extract(Input{Bytes: []byte("First paragraph.\n\nSecond paragraph."), Filename: "a.txt"})
	require.False(t, res.ExtractionFailed)
	require.Len(t, res.Blocks, 2)
	assert.Equal(t, docmodel.BlockParagraph, res.Blocks[0].Kind)
	assert.Equal(t, "First paragraph.", res.Blocks[0].Text)
	assert.Equal(t, "Second paragraph.", res.Blocks[1].Text)
}

func TestExtract_SourceCodeWrapsWholeFileAsOneCodeBlock(t *testing.T) {
	t.Parallel()
	res := Extract(Input{Bytes: []byte("package main\n\nfunc main() {}\n"), Filename: "main.go"})
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, docmodel.BlockCode, res.Blocks[0].Kind)
	assert.Equal(t, "go", res.Blocks[0].Language)
}

func TestMarkdownBlocks_HeadingsTablesCodeAndIgnore(t *testing.T) {
	t.Parallel()
	src := "# Title\n\nSome intro text.\n\n" +
		"| A | B |\n|---|---|\n| 1 | 2 |\n\n" +
		"```go\nfmt.Println(\"hi\")\n```\n\n" +
		"<!-- IGNORE -->\nhidden metadata\n<!-- /IGNORE -->\n\n" +
		"- item one\n- item two\n"

	blocks := MarkdownBlocks(src)

	var kinds []docmodel.BlockKind
	for _, b := range blocks {
		kinds = append(kinds, b.Kind)
	}
	assert.Contains(t, kinds, docmodel.BlockHeading)
	assert.Contains(t, kinds, docmodel.BlockTable)
	assert.Contains(t, kinds, docmodel.BlockCode)
	assert.Contains(t, kinds, docmodel.BlockIgnore)
	assert.Contains(t, kinds, docmodel.BlockList)

	for _, b := range blocks {
		if b.Kind == docmodel.BlockTable {
			require.Len(t, b.Rows, 2, "the '---' separator row must be dropped")
			assert.Equal(t, [][]string{{"A", "B"}, {"1", "2"}}, b.Rows)
		}
		if b.Kind == docmodel.BlockIgnore {
			assert.Equal(t, "hidden metadata", b.Text)
		}
		if b.Kind == docmodel.BlockList {
			assert.Equal(t, []string{"item one", "item two"}, b.Items)
		}
	}
}

func TestExtractEmail_CapturesRawSubjectAsHeading(t *testing.T) {
	t.Parallel()
	raw := []byte("From: bob@example.com\nSubject: Re: Fwd: Q3 plan\n\nLet's sync tomorrow.")
	res, err := extractEmail(Input{Bytes: raw})
	require.NoError(t, err)
	require.NotEmpty(t, res.Blocks)
	assert.Equal(t, docmodel.BlockHeading, res.Blocks[0].Kind)
	assert.Equal(t, "Re: Fwd: Q3 plan", res.Blocks[0].Text)
	assert.Contains(t, res.Text, "Let's sync tomorrow.")
}

func TestNormalizeSubject_StripsReplyAndForwardPrefixes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "q3 plan", NormalizeSubject("Re: Re: Q3 plan"))
	assert.Equal(t, "q3 plan", NormalizeSubject("Fwd: Q3 plan"))
	assert.Equal(t, "q3 plan", NormalizeSubject("Q3 plan"))
}
