package llmrouter

import (
	"context"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"docmind/internal/config"
)

type openAIProvider struct {
	sdk   sdk.Client
	model string
}

func newOpenAIProvider(cfg config.ProviderConfig) *openAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(cfg.APIKey))}
	if base := strings.TrimSpace(cfg.Endpoint); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &openAIProvider{sdk: sdk.NewClient(opts...), model: model}
}

func (p *openAIProvider) Name() string { return "openai" }

func (p *openAIProvider) Call(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (CallResult, error) {
	effModel := model
	if effModel == "" {
		effModel = p.model
	}
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(effModel),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.UserMessage(prompt),
		},
	}
	comp, err := p.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return CallResult{}, err
	}
	var text string
	if len(comp.Choices) > 0 {
		text = comp.Choices[0].Message.Content
	}
	return CallResult{
		Text:         text,
		InputTokens:  int(comp.Usage.PromptTokens),
		OutputTokens: int(comp.Usage.CompletionTokens),
		ModelUsed:    effModel,
	}, nil
}
