// Package docmodel defines the shared data types that flow through the
// ingestion and retrieval pipeline: documents, enrichment results, score
// bundles, chunks and conversation threads. The controlled vocabulary they
// are validated against lives in internal/vocabulary.
package docmodel

import "time"

// DocType is the closed set of canonical document types.
type DocType string

const (
	DocEmailThread DocType = "email_thread"
	DocChatDaily   DocType = "chat_daily"
	DocPDFReport   DocType = "pdf_report"
	DocWebArticle  DocType = "web_article"
	DocNote        DocType = "note"
	DocText        DocType = "text"
	DocLegal       DocType = "legal"
	DocGeneric     DocType = "generic"
)

// ValidDocType reports whether t is a member of the closed DocType set.
func ValidDocType(t DocType) bool {
	switch t {
	case DocEmailThread, DocChatDaily, DocPDFReport, DocWebArticle, DocNote, DocText, DocLegal, DocGeneric:
		return true
	}
	return false
}

// BlockKind enumerates the structural block variants produced by C1.
type BlockKind string

const (
	BlockHeading   BlockKind = "heading"
	BlockParagraph BlockKind = "paragraph"
	BlockList      BlockKind = "list"
	BlockTable     BlockKind = "table"
	BlockCode      BlockKind = "code"
	BlockIgnore    BlockKind = "ignore"
)

// Block is a tagged-variant structural unit of extracted text. Only the
// fields relevant to Kind are populated; this replaces runtime-typed
// dispatch across document formats with a closed, explicit variant.
type Block struct {
	Kind     BlockKind
	Level    int      // heading level, 1-6; zero for non-headings
	Text     string   // heading/paragraph/code/ignore text
	Items    []string // list items
	Rows     [][]string
	Language string // code block language, inferred from fence info or extension
}

// SourceDescriptor describes where a document's bytes came from.
type SourceDescriptor struct {
	Filename       string
	UploadedAt     time.Time
	UploadedAtZero bool // true when UploadedAt was never set by the caller
}

// Message is one entry in a Conversation thread (email message or chat line).
type Message struct {
	SenderRole string
	Timestamp  time.Time
	Body       string
}

// Thread is a conversation composed of many messages, ingested as a single
// logical document (email thread or one chat-day).
type Thread struct {
	ID       string
	Messages []Message
}

// Text concatenates the thread's messages in order to form the document's
// canonical extracted text.
func (t Thread) Text() string {
	out := ""
	for i, m := range t.Messages {
		if i > 0 {
			out += "\n\n"
		}
		out += m.SenderRole + " (" + m.Timestamp.Format(time.RFC3339) + "):\n" + m.Body
	}
	return out
}

// EnrichmentResult is the structured output of C4, bound by the controlled
// vocabulary closed sets.
type EnrichmentResult struct {
	Title            string
	TitleStrategy    string // which fallback strategy produced Title, for diagnostics
	Summary          string
	Topics           []string
	Projects         []string
	Places           []string
	RoleMentions     []string
	Organizations    []string
	LocationsFree    []string
	Dates            []string
	KeyPoints        []string
	SuggestedTags    []string // candidates rejected from the closed vocabulary
	Confidence       float64
	SourceModelID    string
	Cost             float64
	SchemaVersion    int
	EnrichmentDegraded bool
}

// ScoreBundle is the quality/novelty/actionability/signalness tuple computed
// by C5, plus the derived do_index decision.
type ScoreBundle struct {
	Quality       float64
	Novelty       float64
	Actionability float64
	Signalness    float64
	DoIndex       bool
	GateReason    string
}

// Document is the ingest-time record for one submitted document.
type Document struct {
	ID               string
	ContentHash      string // sha256 lowercase hex over normalized text
	Source           SourceDescriptor
	DetectedMIME     string
	Type             DocType
	Text             string
	Blocks           []Block
	Enrichment       EnrichmentResult
	Score            ScoreBundle
	DoIndex          bool
	CreatedAt        time.Time
	EnrichmentSchema int
	OCRFallback      bool
	OCRConfidence    float64 // 0 when not applicable; else 0..1
	ExtractionFailed bool
	PageMap          []PageMarker
}

// PageMarker records the byte offset at which a new page begins, for
// paginated formats (PDF, office documents).
type PageMarker struct {
	ByteOffset int
	Page       int
}

// Chunk is one retrieval unit produced by C6.
type ChunkKind string

const (
	ChunkHeadingSection ChunkKind = "heading_section"
	ChunkParagraph      ChunkKind = "paragraph"
	ChunkList           ChunkKind = "list"
	ChunkTable          ChunkKind = "table"
	ChunkCode           ChunkKind = "code"
	ChunkIgnored        ChunkKind = "ignored"
)

type Chunk struct {
	DocID         string
	Ordinal       int
	Kind          ChunkKind
	SectionPath   []string
	Text          string
	TokenEstimate int
	Metadata      map[string]string
}

// ID returns the vector-store/sparse-index identifier for this chunk.
func (c Chunk) ID() string {
	return c.DocID + ":" + itoa(c.Ordinal)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
