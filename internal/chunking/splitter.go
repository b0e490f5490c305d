package chunking

import (
	"strings"
	"unicode"
)

// SentenceSplitter turns text into ordered sentence spans (rune offsets).
// Implementations must keep spans sorted and non-overlapping; gap-free
// coverage is normalized by the detector, not required here.
type SentenceSplitter interface {
	Split(text string) []Span
}

// abbreviations that never end a sentence, stored lowercase without dots
var alwaysAbbreviations = map[string]struct{}{
	"dr": {}, "mr": {}, "mrs": {}, "ms": {}, "prof": {}, "sr": {}, "jr": {},
	"st": {}, "vs": {}, "etc": {}, "eg": {}, "ie": {}, "cf": {}, "al": {},
	"inc": {}, "ltd": {}, "corp": {}, "dept": {}, "univ": {}, "ed": {},
	"eds": {}, "est": {}, "resp": {},
}

// abbreviations that end a sentence unless followed by a number
var numericAbbreviations = map[string]struct{}{
	"no": {}, "vol": {}, "pp": {}, "fig": {}, "eq": {}, "sec": {},
	"ca": {}, "approx": {}, "p": {},
}

type HeuristicSplitter struct{}

func NewHeuristicSplitter() *HeuristicSplitter {
	return &HeuristicSplitter{}
}

func (s *HeuristicSplitter) Split(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	var spans []Span
	start := 0
	i := 0
	for i < n {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			i++
			continue
		}
		j := i
		for j < n && isStopRune(runes[j]) {
			j++
		}
		k := j
		for k < n && isClosingRune(runes[k]) {
			k++
		}
		if k >= n {
			break
		}
		if !unicode.IsSpace(runes[k]) {
			i = j
			continue
		}
		m := k
		for m < n && unicode.IsSpace(runes[m]) {
			m++
		}
		if m >= n {
			break
		}
		if !startsSentence(runes[m]) {
			i = j
			continue
		}
		if j-i == 1 && runes[i] == '.' && blockedByAbbreviation(runes, i, m) {
			i = j
			continue
		}
		spans = append(spans, Span{Start: start, End: m})
		start = m
		i = m
	}
	if start < n {
		spans = append(spans, Span{Start: start, End: n})
	}
	return spans
}

func isStopRune(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isClosingRune(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '»':
		return true
	}
	return false
}

func startsSentence(r rune) bool {
	if unicode.IsUpper(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '"', '\'', '(', '[', '“', '‘', '«':
		return true
	}
	return false
}

// blockedByAbbreviation decides whether the period at dotPos belongs to an
// abbreviation or initial rather than a sentence end. nextPos is the first
// rune of the following word.
func blockedByAbbreviation(runes []rune, dotPos, nextPos int) bool {
	b := dotPos
	for b > 0 && !unicode.IsSpace(runes[b-1]) {
		b--
	}
	tok := runes[b:dotPos]
	if len(tok) == 0 {
		return false
	}
	norm := normalizeToken(tok)
	if _, ok := alwaysAbbreviations[norm]; ok {
		return true
	}
	if _, ok := numericAbbreviations[norm]; ok && unicode.IsDigit(runes[nextPos]) {
		return true
	}
	// a dotted acronym ("U.S.A") reaching its final period may end the sentence
	for _, r := range tok {
		if r == '.' {
			return false
		}
	}
	// a lone capital is an initial ("J. Smith")
	if len(tok) == 1 && unicode.IsUpper(tok[0]) {
		return true
	}
	return false
}

func normalizeToken(tok []rune) string {
	var b strings.Builder
	for _, r := range tok {
		if r == '.' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
