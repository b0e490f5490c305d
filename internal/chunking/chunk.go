package chunking

import "fmt"

// Span is a [Start, End) rune-offset range into the source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Span) Len() int {
	return s.End - s.Start
}

type OverlapMetrics struct {
	BackwardOverlapChars    int     `json:"backward_overlap_chars"`
	ForwardOverlapChars     int     `json:"forward_overlap_chars"`
	OverlapPercentageActual float64 `json:"overlap_percentage_actual"`
}

type Relationships struct {
	OverlapsWith   []string       `json:"overlaps_with"`
	OverlappedBy   []string       `json:"overlapped_by"`
	AdjacentChunks []string       `json:"adjacent_chunks"`
	OverlapMetrics OverlapMetrics `json:"overlap_metrics"`
}

// Metadata keeps the chunker-owned fields typed; Extra carries fields owned
// by downstream collaborators (page info, extraction confidence, ...).
type Metadata struct {
	Strategy      string                 `json:"strategy"`
	WordCount     int                    `json:"word_count"`
	SentenceCount int                    `json:"sentence_count"`
	ChildChunks   []string               `json:"child_chunks,omitempty"`
	Relationships *Relationships         `json:"relationships,omitempty"`
	Extra         map[string]interface{} `json:"extra,omitempty"`
}

type Chunk struct {
	ID                 string   `json:"chunk_id"`
	Content            string   `json:"content"`
	Index              int      `json:"chunk_index"`
	Level              int      `json:"chunk_level"`
	StartChar          *int     `json:"start_char,omitempty"`
	EndChar            *int     `json:"end_char,omitempty"`
	ParentID           string   `json:"parent_chunk_id,omitempty"`
	OverlapStart       *int     `json:"overlap_start,omitempty"`
	OverlapEnd         *int     `json:"overlap_end,omitempty"`
	SentenceBoundaries []Span   `json:"sentence_boundaries,omitempty"`
	Metadata           Metadata `json:"metadata"`
}

// ChunkID builds the display label for a (level, index) pair. Labels are
// unique within one chunking run only; persistent identity is the caller's job.
func ChunkID(level, index int) string {
	return fmt.Sprintf("level_%d_%d", level, index)
}

func (c *Chunk) ownLength() int {
	if c.StartChar != nil && c.EndChar != nil {
		return *c.EndChar - *c.StartChar
	}
	return runeLen(c.Content) - ptrVal(c.OverlapStart) - ptrVal(c.OverlapEnd)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func ptrVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func intPtr(v int) *int {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}
