package detect

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"docmind/internal/docmodel"
)

// extractOffice handles spreadsheet office documents via excelize, grounded
// on the pack's parser/xlsx.go: each sheet becomes one table block so the
// Chunker's "tables are never split" rule (§4.6) keeps a sheet intact.
// Word-processing and presentation containers are out of reach of the
// libraries carried from the examples (no docx/pptx reader is available in
// the pack) and fall through to the raw-UTF-8-decode chain, same as any
// other unsupported binary format (see DESIGN.md).
func extractOffice(in Input) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(in.Bytes))
	if err != nil {
		return Result{}, fmt.Errorf("opening office document: %w", err)
	}
	defer f.Close()

	var blocks []docmodel.Block
	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockHeading, Level: 2, Text: sheet})
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockTable, Rows: rows})
		sb.WriteString(sheet)
		sb.WriteString("\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, " | "))
			sb.WriteString("\n")
		}
	}

	if len(blocks) == 0 {
		return Result{}, fmt.Errorf("no sheet data found")
	}
	return Result{Text: strings.TrimSpace(sb.String()), Blocks: blocks}, nil
}
