package chunking

import (
	"reflect"
	"testing"
)

type stubSplitter struct {
	spans []Span
}

func (s stubSplitter) Split(string) []Span {
	return s.spans
}

type panicSplitter struct{}

func (panicSplitter) Split(string) []Span {
	panic("splitter exploded")
}

func TestDetectBoundaries_Empty(t *testing.T) {
	d := NewBoundaryDetector(nil)
	if got := d.DetectBoundaries(""); len(got) != 0 {
		t.Fatalf("DetectBoundaries(\"\") = %v, want empty", got)
	}
}

func TestDetectBoundaries_FallbackOnPanic(t *testing.T) {
	d := NewBoundaryDetector(panicSplitter{})
	got := d.DetectBoundaries("abcdef")
	want := []Span{{Start: 0, End: 6}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DetectBoundaries = %v, want %v", got, want)
	}
}

func TestDetectBoundaries_Normalization(t *testing.T) {
	text := "0123456789"
	tests := []struct {
		name  string
		spans []Span
		want  []Span
	}{
		{
			name:  "overlapping spans rejected",
			spans: []Span{{Start: 0, End: 5}, {Start: 3, End: 8}},
			want:  []Span{{Start: 0, End: 10}},
		},
		{
			name:  "out of range clamped and stretched",
			spans: []Span{{Start: -5, End: 4}, {Start: 6, End: 999}},
			want:  []Span{{Start: 0, End: 4}, {Start: 4, End: 10}},
		},
		{
			name:  "empty spans dropped",
			spans: []Span{{Start: 0, End: 0}, {Start: 0, End: 10}},
			want:  []Span{{Start: 0, End: 10}},
		},
		{
			name:  "gap stretched closed",
			spans: []Span{{Start: 0, End: 3}, {Start: 5, End: 8}},
			want:  []Span{{Start: 0, End: 3}, {Start: 3, End: 10}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewBoundaryDetector(stubSplitter{spans: tt.spans})
			got := d.DetectBoundaries(text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("DetectBoundaries = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPreserveSentenceIntegrity(t *testing.T) {
	d := NewBoundaryDetector(nil)
	text := "One. Two. Three."
	tests := []struct {
		name      string
		rawStart  int
		rawEnd    int
		wantStart int
		wantEnd   int
	}{
		{name: "mid-sentence cut widens", rawStart: 6, rawEnd: 8, wantStart: 5, wantEnd: 10},
		{name: "aligned cut unchanged", rawStart: 5, rawEnd: 10, wantStart: 5, wantEnd: 10},
		{name: "straddling cut widens both ways", rawStart: 2, rawEnd: 12, wantStart: 0, wantEnd: 16},
		{name: "out of range clamped", rawStart: -3, rawEnd: 99, wantStart: 0, wantEnd: 16},
		{name: "full text unchanged", rawStart: 0, rawEnd: 16, wantStart: 0, wantEnd: 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStart, gotEnd := d.PreserveSentenceIntegrity(text, tt.rawStart, tt.rawEnd)
			if gotStart != tt.wantStart || gotEnd != tt.wantEnd {
				t.Fatalf("PreserveSentenceIntegrity(%d, %d) = (%d, %d), want (%d, %d)",
					tt.rawStart, tt.rawEnd, gotStart, gotEnd, tt.wantStart, tt.wantEnd)
			}
			// adjusting again must be a no-op
			again1, again2 := d.PreserveSentenceIntegrity(text, gotStart, gotEnd)
			if again1 != gotStart || again2 != gotEnd {
				t.Errorf("not idempotent: (%d, %d) -> (%d, %d)", gotStart, gotEnd, again1, again2)
			}
		})
	}
}

func TestSentenceIndicesWithin(t *testing.T) {
	d := NewBoundaryDetector(nil)
	text := "One. Two. Three."
	tests := []struct {
		name  string
		start int
		end   int
		want  []int
	}{
		{name: "exact sentence", start: 5, end: 10, want: []int{1}},
		{name: "straddles two", start: 3, end: 7, want: []int{0, 1}},
		{name: "whole text", start: 0, end: 16, want: []int{0, 1, 2}},
		{name: "empty range", start: 16, end: 16, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.SentenceIndicesWithin(text, tt.start, tt.end)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SentenceIndicesWithin(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestExtractSentences(t *testing.T) {
	d := NewBoundaryDetector(nil)
	got := d.ExtractSentences("  One.   Two.  ")
	want := []string{"One.", "Two."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractSentences = %v, want %v", got, want)
	}
}

func TestSentenceImportance(t *testing.T) {
	d := NewBoundaryDetector(nil)
	question := d.SentenceImportance("What drives the 15% increase?")
	plain := d.SentenceImportance("The weather was fine today overall.")
	short := d.SentenceImportance("Go now.")
	if question <= plain {
		t.Errorf("question with numbers scored %.2f, plain %.2f; want question higher", question, plain)
	}
	if short >= plain {
		t.Errorf("short fragment scored %.2f, plain %.2f; want fragment lower", short, plain)
	}
	if d.SentenceImportance("") != 0 {
		t.Errorf("empty sentence should score 0")
	}
	for _, s := range []string{"What?!", "A B C D E F G H I J K L 1 2 3?", "Tiny.", ""} {
		score := d.SentenceImportance(s)
		if score < 0 || score > 1 {
			t.Errorf("SentenceImportance(%q) = %.3f out of [0, 1]", s, score)
		}
	}
}
