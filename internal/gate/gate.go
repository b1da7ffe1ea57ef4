// Package gate implements the Confidence Gate (C11): it decides, from
// reranked candidates, whether there is enough evidence to invoke answer
// synthesis at all.
package gate

import (
	"docmind/internal/docmodel"
	"docmind/internal/rerank"
)

// Options configures the gate's thresholds (§4.11 defaults).
type Options struct {
	Tau         float64 // rerank-score threshold a candidate must exceed to count toward coverage
	MinCoverage int
	MinTop      float64
}

func DefaultOptions() Options {
	return Options{Tau: 0.3, MinCoverage: 2, MinTop: 0.4}
}

// Decision is the gate's verdict.
type Decision struct {
	Pass     bool
	Coverage int
	Top      float64
	Err      *docmodel.PipelineError // set when Pass is false
}

// Evaluate computes coverage = count(score > tau) and top = max(score),
// failing the gate when either falls short of the configured minimums
// (spec §4.11).
func Evaluate(candidates []rerank.Scored, opt Options) Decision {
	if opt.Tau == 0 && opt.MinCoverage == 0 && opt.MinTop == 0 {
		opt = DefaultOptions()
	}
	var coverage int
	var top float64
	for _, c := range candidates {
		if c.RerankScore > top {
			top = c.RerankScore
		}
		if c.RerankScore > opt.Tau {
			coverage++
		}
	}
	if coverage < opt.MinCoverage || top < opt.MinTop {
		return Decision{
			Pass:     false,
			Coverage: coverage,
			Top:      top,
			Err:      docmodel.NewError(docmodel.ErrInsufficientEvidence, "insufficient retrieval evidence to answer"),
		}
	}
	return Decision{Pass: true, Coverage: coverage, Top: top}
}
