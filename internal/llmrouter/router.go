package llmrouter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docmind/internal/config"
	"docmind/internal/docmodel"
	"docmind/internal/logging"
)

type providerEntry struct {
	cfg      config.ProviderConfig
	provider Provider
}

// Router holds the ordered provider fallback chain and the cost ledger.
type Router struct {
	providers      []providerEntry
	ledger         *Ledger
	dailyBudgetUSD float64
	now            func() time.Time
}

// New builds a Router from the configured provider chain (§4.14: "ordered
// list of providers (primary, fallback, emergency)").
func New(cfg config.Config, ledger *Ledger) (*Router, error) {
	r := &Router{ledger: ledger, dailyBudgetUSD: cfg.DailyBudgetUSD, now: time.Now}
	for _, pc := range cfg.Providers {
		p, err := NewProvider(pc)
		if err != nil {
			return nil, fmt.Errorf("build provider %s: %w", pc.Name, err)
		}
		r.providers = append(r.providers, providerEntry{cfg: pc, provider: p})
	}
	return r, nil
}

// Call implements §4.14's API: call(prompt, optional_model_id, temperature,
// max_tokens) -> (text, cost, model_used). If preferredModel is set, every
// provider configured with a matching model is tried before the others;
// otherwise providers are tried in configured order. The first success
// wins.
func (r *Router) Call(ctx context.Context, prompt, preferredModel string, temperature float64, maxTokens int) (string, float64, string, error) {
	if r.dailyBudgetUSD > 0 && r.ledger != nil {
		if r.ledger.DailyTotal(r.now()) >= r.dailyBudgetUSD {
			return "", 0, "", docmodel.NewError(docmodel.ErrBudgetExceeded, "daily LLM budget exhausted")
		}
	}

	log := logging.Stage("llmrouter")
	order := r.orderedProviders(preferredModel)
	if len(order) == 0 {
		return "", 0, "", errors.New("no LLM providers configured")
	}

	var lastErr error
	for _, entry := range order {
		// Each provider is always called with its own configured model;
		// preferredModel only affects try order (see orderedProviders), never
		// which model name a fallback provider receives.
		result, err := entry.provider.Call(ctx, entry.cfg.Model, prompt, temperature, maxTokens)
		if err != nil {
			log.Warn().Str("provider", entry.cfg.Name).Err(err).Msg("llm_provider_failed")
			lastErr = err
			continue
		}
		at := r.now()
		entryRecord := LedgerEntry{}
		if r.ledger != nil {
			entryRecord = r.ledger.Record(entry.cfg.Name, result.ModelUsed, result.InputTokens, result.OutputTokens, entry.cfg.InputPricePM, entry.cfg.OutputPricePM, at)
		}
		return result.Text, entryRecord.CostUSD, result.ModelUsed, nil
	}
	return "", 0, "", fmt.Errorf("all providers exhausted: %w", lastErr)
}

// orderedProviders puts a preferred-model match first without disturbing
// the rest of the configured order.
func (r *Router) orderedProviders(preferredModel string) []providerEntry {
	if preferredModel == "" {
		return r.providers
	}
	out := make([]providerEntry, 0, len(r.providers))
	var matched []providerEntry
	for _, e := range r.providers {
		if e.cfg.Model == preferredModel {
			matched = append(matched, e)
		} else {
			out = append(out, e)
		}
	}
	return append(matched, out...)
}

// DailyTotal exposes the ledger's per-day total (§4.14 step 5).
func (r *Router) DailyTotal() float64 {
	if r.ledger == nil {
		return 0
	}
	return r.ledger.DailyTotal(r.now())
}

// RemainingBudget exposes the remaining daily budget.
func (r *Router) RemainingBudget() float64 {
	if r.ledger == nil || r.dailyBudgetUSD <= 0 {
		return 0
	}
	return r.ledger.RemainingBudget(r.dailyBudgetUSD, r.now())
}
