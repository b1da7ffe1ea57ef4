// Package enrich implements the Enricher (C4): a single strict-JSON LLM
// call against the controlled vocabulary's closed sets, with the title
// fallback chain and post-validation the spec requires.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"docmind/internal/docmodel"
	"docmind/internal/llmrouter"
	"docmind/internal/vocabulary"
)


// Options bounds the text prefix sent to the LLM (§4.4: "possibly
// truncated to a bounded prefix — e.g., first ~8000 tokens").
type Options struct {
	MaxPromptTokens int
	Model           string
}

func DefaultOptions() Options {
	return Options{MaxPromptTokens: 8000}
}

// rawEnrichment is the strict JSON shape the LLM is asked to produce.
type rawEnrichment struct {
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Topics        []string `json:"topics"`
	Projects      []string `json:"projects"`
	Places        []string `json:"places"`
	RoleMentions  []string `json:"role_mentions"`
	Organizations []string `json:"organizations"`
	LocationsFree []string `json:"locations_free"`
	Dates         []string `json:"dates"`
	KeyPoints     []string `json:"key_points"`
}

// Enrich runs the full C4 protocol: prompt assembly, a single router call,
// strict JSON parse, post-validation against vocabulary, title fallback,
// and the enrichment_degraded escape hatch on unrecoverable failure.
func Enrich(ctx context.Context, router *llmrouter.Router, vocab *vocabulary.Store, doc docmodel.Document, blocks []docmodel.Block, filename string, opt Options) docmodel.EnrichmentResult {
	if opt.MaxPromptTokens <= 0 {
		opt = DefaultOptions()
	}

	prompt := buildPrompt(doc.Text, doc.Type, vocab, opt.MaxPromptTokens)
	text, cost, model, err := router.Call(ctx, prompt, opt.Model, 0.0, 2048)
	if err != nil {
		return degraded(doc, blocks, filename, 0, "")
	}

	raw, perr := parseStrictJSON(text)
	if perr != nil {
		return degraded(doc, blocks, filename, cost, model)
	}

	result := postValidate(raw, vocab, doc.Text)
	result.Cost = cost
	result.SourceModelID = model
	result.Confidence = 0.8
	result.SchemaVersion = 1

	if strings.TrimSpace(result.Title) == "" {
		result.Title, result.TitleStrategy = fallbackTitle(blocks, doc.Text, filename)
	} else {
		result.TitleStrategy = "llm"
	}
	return result
}

func degraded(doc docmodel.Document, blocks []docmodel.Block, filename string, cost float64, model string) docmodel.EnrichmentResult {
	title, strategy := fallbackTitle(blocks, doc.Text, filename)
	return docmodel.EnrichmentResult{
		Title:              title,
		TitleStrategy:      strategy,
		Confidence:         0.1,
		Cost:               cost,
		SourceModelID:      model,
		SchemaVersion:      1,
		EnrichmentDegraded: true,
	}
}

const maxPromptCharsPerToken = 4

func buildPrompt(text string, docType docmodel.DocType, vocab *vocabulary.Store, maxTokens int) string {
	maxChars := maxTokens * maxPromptCharsPerToken
	truncated := text
	if len(truncated) > maxChars {
		truncated = truncated[:maxChars]
	}

	var sb strings.Builder
	sb.WriteString("You are extracting structured metadata from a document. Respond with a single JSON object only, no prose.\n\n")
	sb.WriteString("Document type: " + string(docType) + "\n\n")
	sb.WriteString("Closed topic vocabulary (select topics ONLY from this list; if none match, return an empty array): ")
	sb.WriteString(strings.Join(vocab.ListAllTopics(), ", "))
	sb.WriteString("\n\n")
	sb.WriteString("Closed place vocabulary: ")
	sb.WriteString(strings.Join(vocab.IterPlaces(), ", "))
	sb.WriteString("\n\n")
	sb.WriteString("Closed role vocabulary: ")
	sb.WriteString(strings.Join(vocab.IterRoles(), ", "))
	sb.WriteString("\n\n")
	sb.WriteString("Hard constraints: do not fabricate people, organizations, or locations — only extract strings that appear verbatim in the text. ")
	sb.WriteString("Do not use example entries above as examples to include in your answer.\n\n")
	sb.WriteString("Respond with JSON matching this shape: {\"title\":\"\",\"summary\":\"\",\"topics\":[],\"projects\":[],\"places\":[],")
	sb.WriteString("\"role_mentions\":[],\"organizations\":[],\"locations_free\":[],\"dates\":[],\"key_points\":[]}\n\n")
	sb.WriteString("Document text:\n")
	sb.WriteString(truncated)
	return sb.String()
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

func parseStrictJSON(text string) (rawEnrichment, error) {
	var raw rawEnrichment
	candidate := strings.TrimSpace(text)
	if err := json.Unmarshal([]byte(candidate), &raw); err == nil {
		return raw, nil
	}
	// Some providers wrap the JSON in prose or code fences; salvage the
	// first balanced-looking object.
	if m := jsonObjectRe.FindString(candidate); m != "" {
		if err := json.Unmarshal([]byte(m), &raw); err == nil {
			return raw, nil
		}
	}
	return rawEnrichment{}, errors.New("enrich: could not locate a valid JSON object in model output")
}

// postValidate enforces the vocabulary-membership and substring-presence
// invariants from spec §3/§4.4.
func postValidate(raw rawEnrichment, vocab *vocabulary.Store, sourceText string) docmodel.EnrichmentResult {
	lowerSource := strings.ToLower(sourceText)

	var topics, suggested []string
	for _, t := range dedupe(raw.Topics) {
		if vocab.ContainsTopic(t) {
			topics = append(topics, t)
		} else {
			suggested = append(suggested, t)
		}
	}
	var projects []string
	for _, p := range dedupe(raw.Projects) {
		if vocab.ContainsProject(p) {
			projects = append(projects, p)
		} else {
			suggested = append(suggested, p)
		}
	}
	var places []string
	for _, p := range dedupe(raw.Places) {
		if vocab.ContainsPlace(p) {
			places = append(places, p)
		} else {
			suggested = append(suggested, p)
		}
	}
	var roles []string
	for _, r := range dedupe(raw.RoleMentions) {
		if vocab.ContainsRole(r) {
			roles = append(roles, r)
		} else {
			suggested = append(suggested, r)
		}
	}

	orgs := filterSubstringPresent(raw.Organizations, lowerSource)
	locs := filterSubstringPresent(raw.LocationsFree, lowerSource)

	summary := raw.Summary
	if len(summary) > 400 {
		summary = summary[:400]
	}

	return docmodel.EnrichmentResult{
		Title:         strings.TrimSpace(raw.Title),
		Summary:       summary,
		Topics:        topics,
		Projects:      projects,
		Places:        places,
		RoleMentions:  roles,
		Organizations: orgs,
		LocationsFree: locs,
		Dates:         dedupe(raw.Dates),
		KeyPoints:     raw.KeyPoints,
		SuggestedTags: dedupe(suggested),
	}
}

// filterSubstringPresent keeps only entries that occur in the source text as
// a whole word, case-insensitive — a bare substring match would let "Ander"
// pass against source text that only contains "Anderson".
func filterSubstringPresent(candidates []string, lowerSource string) []string {
	var out []string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if vocabulary.ContainsWholeToken(lowerSource, strings.ToLower(c)) {
			out = append(out, c)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

var sentenceEndRe = regexp.MustCompile(`[.!?](\s|$)`)

// fallbackTitle implements the spec §4.4 strategy chain: first heading
// with >=3 words, first sentence <=120 chars, filename stem, literal
// "Untitled document".
func fallbackTitle(blocks []docmodel.Block, text, filename string) (string, string) {
	for _, b := range blocks {
		if b.Kind == docmodel.BlockHeading && len(strings.Fields(b.Text)) >= 3 {
			return b.Text, "heading"
		}
	}
	if loc := sentenceEndRe.FindStringIndex(text); loc != nil {
		sentence := strings.TrimSpace(text[:loc[0]+1])
		if len(sentence) > 0 && len(sentence) <= 120 {
			return sentence, "first_sentence"
		}
	}
	if filename != "" {
		stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		stem = strings.TrimSpace(strings.ReplaceAll(stem, "_", " "))
		if stem != "" {
			return stem, "filename_stem"
		}
	}
	return "Untitled document", "default"
}
