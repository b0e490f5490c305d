package chunking

import (
	"strings"
	"unicode"
)

// BoundaryDetector maps raw text to sentence spans and offers snapping and
// scoring helpers on top of an injected SentenceSplitter. It never fails:
// a misbehaving splitter degrades to a single whole-text span.
type BoundaryDetector struct {
	splitter SentenceSplitter
}

// NewBoundaryDetector builds a detector around the given splitter; passing
// nil selects the built-in heuristic splitter.
func NewBoundaryDetector(splitter SentenceSplitter) *BoundaryDetector {
	if splitter == nil {
		splitter = NewHeuristicSplitter()
	}
	return &BoundaryDetector{splitter: splitter}
}

// DetectBoundaries returns ordered, non-overlapping spans covering the whole
// text. Empty text yields an empty slice; text without terminal punctuation
// yields one span.
func (d *BoundaryDetector) DetectBoundaries(text string) []Span {
	n := runeLen(text)
	if n == 0 {
		return []Span{}
	}
	spans := d.safeSplit(text)
	spans = normalizeSpans(spans, n)
	if len(spans) == 0 {
		return []Span{{Start: 0, End: n}}
	}
	return spans
}

func (d *BoundaryDetector) safeSplit(text string) (spans []Span) {
	defer func() {
		if r := recover(); r != nil {
			spans = nil
		}
	}()
	return d.splitter.Split(text)
}

// normalizeSpans enforces the coverage contract regardless of splitter
// quality: in-range, sorted input is stretched gap-free from 0 to n;
// anything unsalvageable returns nil so the caller falls back.
func normalizeSpans(spans []Span, n int) []Span {
	if len(spans) == 0 {
		return nil
	}
	out := make([]Span, 0, len(spans))
	prevEnd := 0
	for _, sp := range spans {
		if sp.Start < 0 {
			sp.Start = 0
		}
		if sp.End > n {
			sp.End = n
		}
		if sp.End <= sp.Start {
			continue
		}
		if sp.Start < prevEnd {
			return nil
		}
		sp.Start = prevEnd
		out = append(out, sp)
		prevEnd = sp.End
	}
	if len(out) == 0 {
		return nil
	}
	out[len(out)-1].End = n
	return out
}

// PreserveSentenceIntegrity snaps a raw cut outward so no sentence is split:
// the start moves back to the nearest sentence start, the end forward to the
// nearest sentence end. Idempotent; never shrinks the requested span.
func (d *BoundaryDetector) PreserveSentenceIntegrity(text string, rawStart, rawEnd int) (int, int) {
	n := runeLen(text)
	if n == 0 {
		return 0, 0
	}
	if rawStart < 0 {
		rawStart = 0
	}
	if rawStart > n {
		rawStart = n
	}
	if rawEnd > n {
		rawEnd = n
	}
	if rawEnd < rawStart {
		rawEnd = rawStart
	}
	spans := d.DetectBoundaries(text)
	adjStart := 0
	adjEnd := n
	for _, sp := range spans {
		if sp.Start <= rawStart && sp.Start > adjStart {
			adjStart = sp.Start
		}
	}
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].End >= rawEnd && spans[i].End < adjEnd {
			adjEnd = spans[i].End
		}
	}
	return adjStart, adjEnd
}

// SentenceIndicesWithin returns boundary-list indices of sentences fully or
// partially inside [start, end).
func (d *BoundaryDetector) SentenceIndicesWithin(text string, start, end int) []int {
	indices := make([]int, 0)
	for i, sp := range d.DetectBoundaries(text) {
		if sp.Start < end && sp.End > start {
			indices = append(indices, i)
		}
	}
	return indices
}

func (d *BoundaryDetector) ExtractSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0)
	for _, sp := range d.DetectBoundaries(text) {
		s := strings.TrimSpace(string(runes[sp.Start:sp.End]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// SentenceImportance scores a sentence in [0, 1]. Questions and sentences
// with quantitative content rank above plain declaratives of similar length.
func (d *BoundaryDetector) SentenceImportance(sentence string) float64 {
	s := strings.TrimSpace(sentence)
	if s == "" {
		return 0
	}
	score := 0.35
	if strings.Contains(s, "?") {
		score += 0.3
	}
	if strings.Contains(s, "!") {
		score += 0.05
	}
	hasDigit := false
	for _, r := range s {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if hasDigit {
		score += 0.2
	}
	if strings.ContainsAny(s, "%$€£") {
		score += 0.05
	}
	words := len(strings.Fields(s))
	if words >= 8 && words <= 30 {
		score += 0.15
	} else if words < 4 {
		score -= 0.1
	}
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
