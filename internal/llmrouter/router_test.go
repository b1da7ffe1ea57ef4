package llmrouter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docmind/internal/config"
	"docmind/internal/docmodel"
)

type fakeProvider struct {
	name   string
	result CallResult
	err    error
	calls  int
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Call(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (CallResult, error) {
	f.calls++
	return f.result, f.err
}

func newTestRouter(t *testing.T, entries []providerEntry, dailyBudget float64) (*Router, *Ledger) {
	t.Helper()
	ledger, err := NewLedger("")
	require.NoError(t, err)
	return &Router{providers: entries, ledger: ledger, dailyBudgetUSD: dailyBudget, now: time.Now}, ledger
}

func TestRouter_Call_FirstProviderSucceeds(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{name: "anthropic", result: CallResult{Text: "hello", InputTokens: 100, OutputTokens: 50, ModelUsed: "claude"}}
	fallback := &fakeProvider{name: "openai", result: CallResult{Text: "unused"}}
	r, _ := newTestRouter(t, []providerEntry{
		{cfg: config.ProviderConfig{Name: "anthropic", Model: "claude", InputPricePM: 3, OutputPricePM: 15}, provider: primary},
		{cfg: config.ProviderConfig{Name: "openai", Model: "gpt"}, provider: fallback},
	}, 0)

	text, cost, model, err := r.Call(context.Background(), "prompt", "", 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, "claude", model)
	assert.Greater(t, cost, 0.0)
	assert.Equal(t, 0, fallback.calls, "fallback should not be invoked when the primary succeeds")
}

func TestRouter_Call_FallsBackOnProviderFailure(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{name: "anthropic", err: errors.New("rate limited")}
	fallback := &fakeProvider{name: "openai", result: CallResult{Text: "fallback answer", ModelUsed: "gpt"}}
	r, _ := newTestRouter(t, []providerEntry{
		{cfg: config.ProviderConfig{Name: "anthropic", Model: "claude"}, provider: primary},
		{cfg: config.ProviderConfig{Name: "openai", Model: "gpt"}, provider: fallback},
	}, 0)

	text, _, model, err := r.Call(context.Background(), "prompt", "", 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "fallback answer", text)
	assert.Equal(t, "gpt", model)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRouter_Call_AllProvidersExhausted(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{name: "anthropic", err: errors.New("down")}
	r, _ := newTestRouter(t, []providerEntry{
		{cfg: config.ProviderConfig{Name: "anthropic", Model: "claude"}, provider: primary},
	}, 0)

	_, _, _, err := r.Call(context.Background(), "prompt", "", 0.2, 100)
	assert.Error(t, err)
}

func TestRouter_Call_BudgetExceededShortCircuits(t *testing.T) {
	t.Parallel()
	primary := &fakeProvider{name: "anthropic", result: CallResult{Text: "should not be reached"}}
	r, ledger := newTestRouter(t, []providerEntry{
		{cfg: config.ProviderConfig{Name: "anthropic", Model: "claude", InputPricePM: 100, OutputPricePM: 100}, provider: primary},
	}, 1.0)
	ledger.Record("anthropic", "claude", 1_000_000, 0, 100, 0, time.Now()) // spends $100, already over budget

	_, _, _, err := r.Call(context.Background(), "prompt", "", 0.2, 100)
	require.Error(t, err)
	var perr *docmodel.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, docmodel.ErrBudgetExceeded, perr.Kind)
	assert.Equal(t, 0, primary.calls)
}

func TestRouter_Call_PreferredModelIsTriedFirst(t *testing.T) {
	t.Parallel()
	first := &fakeProvider{name: "anthropic", result: CallResult{Text: "from anthropic", ModelUsed: "claude"}}
	second := &fakeProvider{name: "openai", result: CallResult{Text: "from openai", ModelUsed: "gpt"}}
	r, _ := newTestRouter(t, []providerEntry{
		{cfg: config.ProviderConfig{Name: "anthropic", Model: "claude"}, provider: first},
		{cfg: config.ProviderConfig{Name: "openai", Model: "gpt"}, provider: second},
	}, 0)

	text, _, _, err := r.Call(context.Background(), "prompt", "gpt", 0.2, 100)
	require.NoError(t, err)
	assert.Equal(t, "from openai", text)
	assert.Equal(t, 0, first.calls)
}
