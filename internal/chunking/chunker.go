package chunking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

const (
	defaultBaseChunkSize = 1000
	defaultMaxLevels     = 3
	// consecutive chunks are grouped until the parent approximates
	// base * groupGrowthFactor^level
	groupGrowthFactor = 3
)

type Config struct {
	BaseChunkSize int           `json:"base_chunk_size"`
	MaxLevels     int           `json:"max_levels"`
	Overlap       OverlapConfig `json:"overlap"`
}

func DefaultConfig() Config {
	return Config{
		BaseChunkSize: defaultBaseChunkSize,
		MaxLevels:     defaultMaxLevels,
		Overlap:       DefaultOverlapConfig(),
	}
}

// Chunker segments documents by strategy and keeps the hierarchy and
// relationship state of everything it has chunked since construction or the
// last Reset. A chunker is single-writer: callers serialize access.
type Chunker struct {
	cfg      Config
	detector *BoundaryDetector
	overlap  *OverlapManager
	segs     map[Strategy]segmenter

	arena   []hierarchyNode
	byLabel map[string]int
}

type Option func(*Chunker)

// WithSplitter swaps the sentence splitter used by the owned detector,
// typically to layer caching on top of the heuristic one.
func WithSplitter(s SentenceSplitter) Option {
	return func(c *Chunker) {
		if s != nil {
			c.detector = NewBoundaryDetector(s)
		}
	}
}

func NewChunker(cfg Config, opts ...Option) *Chunker {
	if cfg.BaseChunkSize <= 0 {
		cfg.BaseChunkSize = defaultBaseChunkSize
	}
	if cfg.MaxLevels <= 0 {
		cfg.MaxLevels = defaultMaxLevels
	}
	c := &Chunker{
		cfg:      cfg,
		detector: NewBoundaryDetector(nil),
		byLabel:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.overlap = NewOverlapManager(cfg.Overlap)
	c.cfg.Overlap = c.overlap.Config()
	c.segs = map[Strategy]segmenter{
		StrategyFixedSize:     fixedSizeSegmenter{},
		StrategySentenceAware: sentenceAwareSegmenter{},
		StrategyHierarchical:  hierarchicalSegmenter{},
		StrategyAdaptive:      adaptiveSegmenter{},
	}
	return c
}

func (c *Chunker) Config() Config {
	return c.cfg
}

func (c *Chunker) Detector() *BoundaryDetector {
	return c.detector
}

func (c *Chunker) OverlapManager() *OverlapManager {
	return c.overlap
}

// ChunkDocument runs one synchronous chunking pass and returns all produced
// chunks ordered by level then index. Empty input is an error, never an
// empty success.
func (c *Chunker) ChunkDocument(ctx context.Context, text string, strategy Strategy) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("chunk document: %w", appErr.ErrEmptyDocument)
	}
	seg, ok := c.segs[strategy]
	if !ok {
		return nil, fmt.Errorf("chunk document: strategy %q: %w", strategy, appErr.ErrUnknownStrategy)
	}
	start := time.Now()
	src := c.newDocSource(text)
	chunks, err := seg.segment(ctx, c, src)
	if err != nil {
		return nil, fmt.Errorf("segment document: %w", err)
	}
	logutil.GetLogger(ctx).Debug("document chunked",
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(chunks)),
		zap.Int("text_length", len(src.runes)),
		zap.Duration("cost", time.Since(start)))
	return chunks, nil
}

func (c *Chunker) newDocSource(text string) *docSource {
	return &docSource{
		text:       text,
		runes:      []rune(text),
		boundaries: c.detector.DetectBoundaries(text),
	}
}

func (c *Chunker) newLeafChunk(src *docSource, index, start, end int, strategy Strategy) Chunk {
	content := string(src.runes[start:end])
	spans := spansWithin(src.boundaries, start, end)
	return Chunk{
		ID:                 ChunkID(0, index),
		Content:            content,
		Index:              index,
		Level:              0,
		StartChar:          intPtr(start),
		EndChar:            intPtr(end),
		SentenceBoundaries: spans,
		Metadata: Metadata{
			Strategy:      string(strategy),
			WordCount:     len(strings.Fields(content)),
			SentenceCount: len(spans),
		},
	}
}

// splitSentenceAware greedily accumulates whole sentences up to
// BaseChunkSize. A single oversized sentence still becomes its own chunk, so
// every pass makes progress.
func (c *Chunker) splitSentenceAware(src *docSource, strategy Strategy) []Chunk {
	bounds := src.boundaries
	if len(bounds) == 0 {
		return nil
	}
	base := c.cfg.BaseChunkSize
	chunks := make([]Chunk, 0, len(src.runes)/base+1)
	curStart := bounds[0].Start
	curEnd := curStart
	for _, sp := range bounds {
		if curEnd > curStart && curEnd-curStart+sp.Len() > base {
			chunks = append(chunks, c.newLeafChunk(src, len(chunks), curStart, curEnd, strategy))
			curStart = curEnd
		}
		curEnd = sp.End
	}
	if curEnd > curStart {
		chunks = append(chunks, c.newLeafChunk(src, len(chunks), curStart, curEnd, strategy))
	}
	return chunks
}

// finishLevel0 annotates overlap and registers the finest level in the
// hierarchy. Higher levels inherit overlap and are registered when grouped.
func (c *Chunker) finishLevel0(ctx context.Context, chunks []Chunk, src *docSource) {
	if len(chunks) == 0 {
		return
	}
	c.overlap.ComputeOverlapBoundaries(ctx, chunks, src.text, c.detector)
	for i := range chunks {
		c.registerLeaf(&chunks[i])
	}
}

func (c *Chunker) groupIntoParents(children []Chunk, level, targetLen int) []Chunk {
	parents := make([]Chunk, 0, len(children)/2+1)
	groupStart := 0
	groupLen := 0
	flush := func(end int) {
		if end <= groupStart {
			return
		}
		group := children[groupStart:end]
		index := len(parents)
		parent := Chunk{
			ID:           ChunkID(level, index),
			Content:      CombineChunkContentWithOverlap(group),
			Index:        index,
			Level:        level,
			OverlapStart: clonePtr(group[0].OverlapStart),
			OverlapEnd:   clonePtr(group[len(group)-1].OverlapEnd),
			Metadata: Metadata{
				Strategy: string(StrategyHierarchical),
			},
		}
		sentences := 0
		for gi := range group {
			sentences += group[gi].Metadata.SentenceCount
			parent.SentenceBoundaries = append(parent.SentenceBoundaries, group[gi].SentenceBoundaries...)
		}
		parent.Metadata.SentenceCount = sentences
		parent.Metadata.WordCount = len(strings.Fields(parent.Content))
		c.EstablishParentChildRelationships(&parent, group)
		parents = append(parents, parent)
		groupStart = end
		groupLen = 0
	}
	for i := range children {
		cl := runeLen(children[i].Content)
		if groupLen > 0 && groupLen+cl > targetLen {
			flush(i)
		}
		groupLen += cl
	}
	flush(len(children))
	return parents
}

// CombineChunkContentWithOverlap concatenates consecutive sibling contents
// while skipping text already present through folded-in overlap: each
// subsequent chunk drops its borrowed prefix plus the previous chunk's
// borrowed suffix. A single chunk is returned verbatim; no chunks yield "".
func CombineChunkContentWithOverlap(chunks []Chunk) string {
	switch len(chunks) {
	case 0:
		return ""
	case 1:
		return chunks[0].Content
	}
	var b strings.Builder
	b.WriteString(chunks[0].Content)
	prevFwd := ptrVal(chunks[0].OverlapEnd)
	for i := 1; i < len(chunks); i++ {
		skip := ptrVal(chunks[i].OverlapStart) + prevFwd
		runes := []rune(chunks[i].Content)
		if skip < len(runes) {
			b.WriteString(string(runes[skip:]))
		}
		prevFwd = ptrVal(chunks[i].OverlapEnd)
	}
	return b.String()
}

// UpdateOverlapConfiguration live-reconfigures the chunker and its overlap
// manager. Out-of-range values are clamped into the domain, never rejected.
func (c *Chunker) UpdateOverlapConfiguration(ctx context.Context, upd OverlapUpdate) ConfigChange {
	old := c.overlap.Config()
	next := old
	if upd.OverlapPercentage != nil {
		next.OverlapPercentage = *upd.OverlapPercentage
	}
	if upd.MinOverlapChars != nil {
		next.MinOverlapChars = *upd.MinOverlapChars
	}
	if upd.MaxOverlapChars != nil {
		next.MaxOverlapChars = *upd.MaxOverlapChars
	}
	clamped, warns := clampOverlapConfig(next)
	c.overlap.setConfig(clamped, warns)
	c.cfg.Overlap = clamped
	validation := clamped.Validate()
	if len(warns) > 0 {
		validation.Warnings = append(append([]string{}, warns...), validation.Warnings...)
	}
	change := ConfigChange{
		OldConfig:      old,
		NewConfig:      clamped,
		Validation:     validation,
		ChangesApplied: clamped != old,
	}
	logutil.GetLogger(ctx).Info("overlap configuration updated",
		zap.Float64("old_percentage", old.OverlapPercentage),
		zap.Float64("new_percentage", clamped.OverlapPercentage),
		zap.Bool("changes_applied", change.ChangesApplied))
	return change
}

// Reset drops hierarchy, relationship and statistics state, keeping the
// current configuration.
func (c *Chunker) Reset() {
	c.arena = nil
	c.byLabel = make(map[string]int)
	c.overlap = NewOverlapManager(c.cfg.Overlap)
}

type OverlapUpdate struct {
	OverlapPercentage *float64 `json:"overlap_percentage,omitempty"`
	MinOverlapChars   *int     `json:"min_overlap_chars,omitempty"`
	MaxOverlapChars   *int     `json:"max_overlap_chars,omitempty"`
}

type ConfigChange struct {
	OldConfig      OverlapConfig    `json:"old_config"`
	NewConfig      OverlapConfig    `json:"new_config"`
	Validation     ValidationResult `json:"validation"`
	ChangesApplied bool             `json:"changes_applied"`
}

func spansWithin(bounds []Span, start, end int) []Span {
	spans := make([]Span, 0, 4)
	for _, sp := range bounds {
		if sp.Start < end && sp.End > start {
			spans = append(spans, sp)
		}
	}
	return spans
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
