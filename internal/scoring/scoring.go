// Package scoring implements the Quality Scorer (C5): quality, novelty, and
// actionability component scores combined into the signalness formula and
// checked against the per-type gate table from internal/config.
package scoring

import (
	"math"
	"strings"
	"time"

	"docmind/internal/config"
	"docmind/internal/docmodel"
)

// QualityInputs carries the signals the quality component needs, gathered
// by the caller from the extraction result (§4.5).
type QualityInputs struct {
	TextLength       int // chars, after extraction
	WordCount        int
	ExtractionFailed bool
	OCRFallback      bool
	OCRConfidence    float64 // 0 means "not recorded"; treated as 1 (no penalty)
	HasHeadings      bool
	HasTables        bool
	HasLists         bool
}

// Quality computes the weighted-average quality component (§4.5), clamped
// to [0,1].
func Quality(in QualityInputs) float64 {
	extraction := extractionSuccess(in)
	structural := structuralRichness(in)
	length := lengthBand(in.WordCount)
	ocr := 1.0
	if in.OCRFallback && in.OCRConfidence > 0 {
		ocr = in.OCRConfidence
	}
	avg := (extraction + structural + length + ocr) / 4
	return clamp01(avg)
}

func extractionSuccess(in QualityInputs) float64 {
	if in.ExtractionFailed {
		return 0
	}
	if in.TextLength < 50 {
		return 0
	}
	if in.OCRFallback {
		return 0.5
	}
	return 1
}

func structuralRichness(in QualityInputs) float64 {
	if in.HasHeadings || in.HasTables || in.HasLists {
		return 1
	}
	if in.WordCount > 0 {
		return 0.5
	}
	return 0.2
}

// lengthBand scores 1 inside [200, 20000] words, decaying linearly outside.
func lengthBand(words int) float64 {
	const lo, hi = 200, 20000
	switch {
	case words >= lo && words <= hi:
		return 1
	case words < lo:
		if words <= 0 {
			return 0
		}
		return clamp01(float64(words) / float64(lo))
	default: // words > hi
		over := float64(words-hi) / float64(hi)
		return clamp01(1 - over)
	}
}

// Novelty is 1 minus the maximum cosine similarity to any existing
// doc-summary embedding, clamped to [0,1]. An empty corpus yields 1.
func Novelty(maxCosineSim float64, corpusEmpty bool) float64 {
	if corpusEmpty {
		return 1
	}
	return clamp01(1 - maxCosineSim)
}

// ActionabilityInputs carries the signals the actionability component needs.
type ActionabilityInputs struct {
	WatchlistHits      int
	ProjectMatched     bool
	DateFutureDetected bool
}

// Actionability = min(1, 0.4·watchlist_hits/5 + 0.3·project_matched +
// 0.3·date_future_event_detected).
func Actionability(in ActionabilityInputs) float64 {
	hits := float64(in.WatchlistHits) / 5
	score := 0.4*hits + boolTerm(in.ProjectMatched)*0.3 + boolTerm(in.DateFutureDetected)*0.3
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

func boolTerm(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Signalness is the exact tested formula from spec §4.5.
func Signalness(quality, novelty, actionability float64) float64 {
	return 0.4*quality + 0.3*novelty + 0.3*actionability
}

// Bundle computes the full ScoreBundle, applying the type's gate from the
// supplied gate table to set DoIndex.
func Bundle(docType docmodel.DocType, quality, novelty, actionability float64, gates map[docmodel.DocType]config.QualityGate) docmodel.ScoreBundle {
	signal := Signalness(quality, novelty, actionability)
	gate, ok := gates[docType]
	if !ok {
		gate = config.QualityGate{MinQuality: 0.65, MinSignal: 0.55} // generic default
	}
	doIndex := quality >= gate.MinQuality && signal >= gate.MinSignal
	reason := ""
	if !doIndex {
		switch {
		case quality < gate.MinQuality && signal < gate.MinSignal:
			reason = "below quality and signal thresholds"
		case quality < gate.MinQuality:
			reason = "below quality threshold"
		default:
			reason = "below signal threshold"
		}
	}
	return docmodel.ScoreBundle{
		Quality:       clamp01(quality),
		Novelty:       clamp01(novelty),
		Actionability: clamp01(actionability),
		Signalness:    clamp01(signal),
		DoIndex:       doIndex,
		GateReason:    reason,
	}
}

// DateFutureDetected reports whether any of the enrichment's extracted
// ISO-8601 dates falls strictly after now, the signal the actionability
// component's date_future_event_detected term consumes.
func DateFutureDetected(dates []string, now time.Time) bool {
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		layouts := []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, d); err == nil {
				if t.After(now) {
					return true
				}
				break
			}
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
