package detect

import (
	"regexp"
	"strings"
	"time"

	"docmind/internal/docmodel"
)

// chatLineRe matches the common exported-chat line shape:
// "2024-03-01 09:14 - Alice: message text" (WhatsApp/Signal/Slack-export
// style timestamps, loosely matched since export formats vary).
var chatLineRe = regexp.MustCompile(`^\[?(\d{4}-\d{2}-\d{2})[ T](\d{1,2}:\d{2})(?::\d{2})?\]?\s*[-,]?\s*([^:]{1,60}):\s?(.*)$`)

// extractChatExport parses plain-text chat export lines and groups them
// into one thread per calendar day (spec §4.1: "one thread per day").
// Extraction here is single-document: if the export spans multiple days,
// the day grouping is reported in the returned blocks' section headings so
// a downstream splitter can fan the file out into one document per day.
func extractChatExport(in Input) (Result, error) {
	text, err := decodeBestEffort(in.Bytes)
	if err != nil {
		return Result{}, err
	}

	type day struct {
		key      string
		messages []docmodel.Message
	}
	var days []*day
	byKey := map[string]*day{}

	for _, line := range strings.Split(text, "\n") {
		m := chatLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dateStr, timeStr, sender, body := m[1], m[2], strings.TrimSpace(m[3]), m[4]
		ts, perr := time.Parse("2006-01-02 15:04", dateStr+" "+timeStr)
		if perr != nil {
			ts, _ = time.Parse("2006-01-02 15:4", dateStr+" "+timeStr)
		}
		d, ok := byKey[dateStr]
		if !ok {
			d = &day{key: dateStr}
			byKey[dateStr] = d
			days = append(days, d)
		}
		d.messages = append(d.messages, docmodel.Message{SenderRole: sender, Timestamp: ts, Body: body})
	}

	if len(days) == 0 {
		return extractPlainText(in)
	}

	var blocks []docmodel.Block
	var parts []string
	for _, d := range days {
		thread := docmodel.Thread{ID: d.key, Messages: d.messages}
		blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockHeading, Level: 2, Text: d.key})
		for _, msg := range d.messages {
			blocks = append(blocks, docmodel.Block{Kind: docmodel.BlockParagraph, Text: msg.SenderRole + ": " + msg.Body})
		}
		parts = append(parts, thread.Text())
	}

	return Result{Text: strings.Join(parts, "\n\n"), Blocks: blocks}, nil
}
