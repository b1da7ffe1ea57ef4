package llmrouter

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"docmind/internal/config"
)

type googleProvider struct {
	client *genai.Client
	model  string
}

func newGoogleProvider(cfg config.ProviderConfig) *googleProvider {
	client, _ := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &googleProvider{client: client, model: model}
}

func (p *googleProvider) Name() string { return "google" }

func (p *googleProvider) Call(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (CallResult, error) {
	effModel := model
	if effModel == "" {
		effModel = p.model
	}
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, effModel, contents, nil)
	if err != nil {
		return CallResult{}, err
	}
	var text string
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			text += part.Text
		}
	}
	inputTokens, outputTokens := 0, 0
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return CallResult{Text: text, InputTokens: inputTokens, OutputTokens: outputTokens, ModelUsed: effModel}, nil
}
