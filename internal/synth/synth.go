// Package synth implements the Answer Synthesizer (C12): it assembles a
// numbered-context prompt from post-rerank candidates and calls the LLM
// Router, demanding citations and a refusal when evidence is absent.
package synth

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"docmind/internal/llmrouter"
	"docmind/internal/rerank"
)

// Answer is the synthesizer's result: the answer text, which context
// blocks it cited, and the cost of the synthesis call.
type Answer struct {
	Text        string
	CitedBlocks []int
	CostUSD     float64
	ModelUsed   string
}

// Options configures synthesis (§4.12: "top-K post-rerank, K typically
// 6-10").
type Options struct {
	ContextK  int
	Model     string
	MaxTokens int
}

func DefaultOptions() Options {
	return Options{ContextK: 8, MaxTokens: 1024}
}

var citeRe = regexp.MustCompile(`\[(\d+)\]`)

// Synthesize builds the prompt and calls the router. When the router
// returns an empty answer (schema-unrecoverable output after all
// providers), callers should treat that as insufficient evidence rather
// than surfacing it as synthesized content.
func Synthesize(ctx context.Context, router *llmrouter.Router, question string, candidates []rerank.Scored, opt Options) (Answer, error) {
	if opt.ContextK <= 0 {
		opt = DefaultOptions()
	}
	k := opt.ContextK
	if k > len(candidates) {
		k = len(candidates)
	}
	top := candidates[:k]

	prompt := buildPrompt(question, top)
	text, cost, model, err := router.Call(ctx, prompt, opt.Model, 0.1, opt.MaxTokens)
	if err != nil {
		return Answer{}, err
	}

	return Answer{
		Text:        text,
		CitedBlocks: extractCitations(text, k),
		CostUSD:     cost,
		ModelUsed:   model,
	}, nil
}

func buildPrompt(question string, candidates []rerank.Scored) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using ONLY the numbered context blocks below. ")
	sb.WriteString("Every claim in your answer must cite the block numbers that support it, like [1] or [2][3]. ")
	sb.WriteString("If the context blocks do not contain enough evidence to answer, say so explicitly instead of guessing.\n\n")
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	for i, c := range candidates {
		sb.WriteString(fmt.Sprintf("[%d] (doc_id=%s, section=%s)\n%s\n\n", i+1, c.DocID, c.SectionPath, c.Text))
	}
	return sb.String()
}

// extractCitations returns the distinct, in-range block numbers cited in
// the answer text, sorted ascending.
func extractCitations(text string, maxBlock int) []int {
	seen := map[int]struct{}{}
	for _, m := range citeRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > maxBlock {
			continue
		}
		seen[n] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sortInts(out)
	return out
}

func sortInts(xs []int) {
	for i := 1; i < len(xs); i++ {
		j := i
		for j > 0 && xs[j-1] > xs[j] {
			xs[j-1], xs[j] = xs[j], xs[j-1]
			j--
		}
	}
}
