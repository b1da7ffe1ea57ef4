package detect

import (
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"docmind/internal/docmodel"
)

// extractEmail parses an RFC 5322 message and returns its body as the
// document text, built as a one-message docmodel.Thread keyed by the
// normalized subject. The References/In-Reply-To headers are not read, and
// the ingest pipeline does not group several .eml files into one thread:
// each message is ingested as its own document. No library in the example pack parses RFC 5322 mail, so this
// uses net/mail — see DESIGN.md for the standard-library justification.
func extractEmail(in Input) (Result, error) {
	msg, err := mail.ReadMessage(strings.NewReader(string(in.Bytes)))
	if err != nil {
		return Result{}, fmt.Errorf("parsing email: %w", err)
	}
	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return Result{}, fmt.Errorf("reading email body: %w", err)
	}
	body := strings.TrimSpace(string(bodyBytes))

	subject := strings.TrimSpace(msg.Header.Get("Subject"))
	from := strings.TrimSpace(msg.Header.Get("From"))
	var sentAt time.Time
	if d, err := msg.Header.Date(); err == nil {
		sentAt = d
	}

	thread := docmodel.Thread{
		ID: NormalizeSubject(subject),
		Messages: []docmodel.Message{
			{SenderRole: from, Timestamp: sentAt, Body: body},
		},
	}

	var blocks []docmodel.Block
	if subject != "" {
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockHeading, Level: 1, Text: subject})
	}
	blocks = append(blocks, paragraphBlocks(body)...)

	return Result{Text: thread.Text(), Blocks: blocks}, nil
}

// NormalizeSubject strips reply/forward prefixes so "Re: Re: Q3 plan" and
// "Fwd: Q3 plan" both normalize to the same thread id as "Q3 plan".
func NormalizeSubject(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(s)
		switch {
		case strings.HasPrefix(lower, "re:"):
			s = strings.TrimSpace(s[3:])
		case strings.HasPrefix(lower, "fwd:"):
			s = strings.TrimSpace(s[4:])
		case strings.HasPrefix(lower, "fw:"):
			s = strings.TrimSpace(s[3:])
		default:
			return strings.ToLower(s)
		}
	}
}
