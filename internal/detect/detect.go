// Package detect implements the Content Detector & Extractor (C1): it turns
// raw bytes plus an optional filename hint into UTF-8 text, an optional
// page map, and a best-effort structural block stream. Format identification
// follows the teacher's web fetcher (internal/tools/web/fetch.go): inspect
// the content first, fall back to the filename extension as a tiebreaker.
package detect

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"docmind/internal/docmodel"
)

// Format is the closed set of formats the extractor recognizes.
type Format string

const (
	FormatPlainText Format = "plain_text"
	FormatMarkdown  Format = "markdown"
	FormatPDF       Format = "pdf"
	FormatOfficeXLS Format = "office_spreadsheet"
	FormatEmail     Format = "email"
	FormatHTML      Format = "html"
	FormatImage     Format = "image"
	FormatChatExport Format = "chat_export"
	FormatSourceCode Format = "source_code"
	FormatUnknown    Format = "unknown"
)

// Input bundles the raw bytes and hints the caller may supply.
type Input struct {
	Bytes       []byte
	Filename    string
	LanguageHint string // OCR language hint, e.g. "eng", "spa"
	UploadedAt  time.Time
}

// Result is what extraction produces: text, a best-effort block stream, an
// optional page map, and signals the Quality Scorer needs.
type Result struct {
	Format           Format
	DetectedMIME     string
	Text             string
	Blocks           []docmodel.Block
	PageMap          []docmodel.PageMarker
	OCRFallback      bool
	OCRConfidence    float64 // 0 when not OCR'd
	ExtractionFailed bool
}

// Detect identifies the format from magic bytes, falling back to the
// filename extension, per spec §4.1.
func Detect(in Input) Format {
	mime := http.DetectContentType(in.Bytes)
	ext := strings.ToLower(filepath.Ext(in.Filename))

	switch {
	case bytes.HasPrefix(in.Bytes, []byte("%PDF-")):
		return FormatPDF
	case strings.HasPrefix(mime, "image/"):
		return FormatImage
	case isZipOfficeDoc(in.Bytes) || ext == ".xlsx" || ext == ".xls" || ext == ".docx" || ext == ".pptx":
		return FormatOfficeXLS
	case ext == ".eml" || ext == ".msg" || looksLikeEmail(in.Bytes):
		return FormatEmail
	case strings.HasPrefix(mime, "text/html") || ext == ".html" || ext == ".htm":
		return FormatHTML
	case ext == ".md" || ext == ".markdown":
		return FormatMarkdown
	case isSourceExt(ext):
		return FormatSourceCode
	case ext == ".chat" || ext == ".log":
		return FormatChatExport
	case strings.HasPrefix(mime, "text/") || utf8.Valid(in.Bytes):
		return FormatPlainText
	default:
		return FormatUnknown
	}
}

func isZipOfficeDoc(b []byte) bool {
	// ZIP local file header magic; office formats (docx/xlsx/pptx) are ZIP
	// containers. We don't unzip here; detection only narrows by extension
	// once the container signature matches.
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 0x03 && b[3] == 0x04
}

func looksLikeEmail(b []byte) bool {
	head := string(b[:min(len(b), 2048)])
	return strings.Contains(head, "\nFrom: ") || strings.HasPrefix(head, "From: ") ||
		strings.Contains(head, "\nSubject: ") || strings.Contains(head, "\nMessage-ID: ")
}

func isSourceExt(ext string) bool {
	switch ext {
	case ".go", ".py", ".js", ".ts", ".java", ".c", ".cpp", ".h", ".hpp", ".rs", ".rb", ".sh", ".sql", ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Extract dispatches to the format-specific extractor and applies the
// raw-UTF-8-decode fallback chain on failure (spec §4.1: "if that also
// fails, fail the document with extraction_failed").
func Extract(in Input) Result {
	format := Detect(in)
	var (
		res Result
		err error
	)
	switch format {
	case FormatPDF:
		res, err = extractPDF(in)
	case FormatOfficeXLS:
		res, err = extractOffice(in)
	case FormatEmail:
		res, err = extractEmail(in)
	case FormatHTML:
		res, err = extractHTML(in)
	case FormatMarkdown:
		res, err = extractMarkdown(in)
	case FormatSourceCode:
		res, err = extractSourceCode(in)
	case FormatChatExport:
		res, err = extractChatExport(in)
	case FormatImage:
		res, err = extractImage(in)
	case FormatPlainText:
		res, err = extractPlainText(in)
	default:
		err = fmt.Errorf("unrecognized format")
	}
	if err == nil {
		res.Format = format
		res.DetectedMIME = http.DetectContentType(in.Bytes)
		return res
	}

	// Fallback: raw UTF-8 decode.
	if !utf8.Valid(in.Bytes) || strings.TrimSpace(string(in.Bytes)) == "" {
		return Result{Format: format, DetectedMIME: http.DetectContentType(in.Bytes), ExtractionFailed: true}
	}
	text := string(in.Bytes)
	return Result{
		Format:       format,
		DetectedMIME: http.DetectContentType(in.Bytes),
		Text:         text,
		Blocks:       []docmodel.Block{{Kind: docmodel.BlockParagraph, Text: text}},
	}
}

// decodeBestEffort tries UTF-8 as-is, then falls back to the htmlindex
// default-encoding sniffing the teacher's web fetcher uses for charset
// detection when a page doesn't declare one.
func decodeBestEffort(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	enc, err := htmlindex.Get("windows-1252")
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
