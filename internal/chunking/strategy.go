package chunking

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

type Strategy string

const (
	StrategyFixedSize     Strategy = "fixed_size"
	StrategySentenceAware Strategy = "sentence_aware"
	StrategyHierarchical  Strategy = "hierarchical"
	StrategyAdaptive      Strategy = "adaptive"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyFixedSize:
		return StrategyFixedSize, nil
	case StrategySentenceAware:
		return StrategySentenceAware, nil
	case StrategyHierarchical:
		return StrategyHierarchical, nil
	case StrategyAdaptive:
		return StrategyAdaptive, nil
	}
	return "", fmt.Errorf("parse strategy %q: %w", s, appErr.ErrUnknownStrategy)
}

// docSource is the per-run view of the input: rune slice plus the boundary
// list detected once and shared by segmentation and overlap snapping.
type docSource struct {
	text       string
	runes      []rune
	boundaries []Span
}

type segmenter interface {
	name() Strategy
	segment(ctx context.Context, c *Chunker, src *docSource) ([]Chunk, error)
}

type fixedSizeSegmenter struct{}

func (fixedSizeSegmenter) name() Strategy {
	return StrategyFixedSize
}

func (fixedSizeSegmenter) segment(ctx context.Context, c *Chunker, src *docSource) ([]Chunk, error) {
	n := len(src.runes)
	base := c.cfg.BaseChunkSize
	chunks := make([]Chunk, 0, n/base+1)
	for idx, pos := 0, 0; pos < n; idx++ {
		end := pos + base
		if end > n {
			end = n
		}
		chunks = append(chunks, c.newLeafChunk(src, idx, pos, end, StrategyFixedSize))
		pos = end
	}
	c.finishLevel0(ctx, chunks, src)
	return chunks, nil
}

type sentenceAwareSegmenter struct{}

func (sentenceAwareSegmenter) name() Strategy {
	return StrategySentenceAware
}

func (sentenceAwareSegmenter) segment(ctx context.Context, c *Chunker, src *docSource) ([]Chunk, error) {
	chunks := c.splitSentenceAware(src, StrategySentenceAware)
	c.finishLevel0(ctx, chunks, src)
	return chunks, nil
}

type hierarchicalSegmenter struct{}

func (hierarchicalSegmenter) name() Strategy {
	return StrategyHierarchical
}

func (hierarchicalSegmenter) segment(ctx context.Context, c *Chunker, src *docSource) ([]Chunk, error) {
	level0 := c.splitSentenceAware(src, StrategyHierarchical)
	c.finishLevel0(ctx, level0, src)
	levels := [][]Chunk{level0}
	prev := level0
	for level := 1; level < c.cfg.MaxLevels; level++ {
		if len(prev) <= 1 {
			break
		}
		target := c.cfg.BaseChunkSize * pow(groupGrowthFactor, level)
		parents := c.groupIntoParents(prev, level, target)
		if len(parents) == len(prev) {
			break
		}
		c.overlap.registerInherited(parents)
		levels = append(levels, parents)
		prev = parents
	}
	logutil.GetLogger(ctx).Debug("hierarchy built",
		zap.Int("levels", len(levels)),
		zap.Int("leaf_chunks", len(level0)))
	return flattenLevels(levels), nil
}

type adaptiveSegmenter struct{}

func (adaptiveSegmenter) name() Strategy {
	return StrategyAdaptive
}

// Rule: hierarchical for anything at least 4 base sizes long, or at least 2
// base sizes when sentences run long (>120 runes on average); sentence-aware
// otherwise. Deterministic for identical input and configuration.
func (adaptiveSegmenter) segment(ctx context.Context, c *Chunker, src *docSource) ([]Chunk, error) {
	n := len(src.runes)
	avg := 0
	if len(src.boundaries) > 0 {
		total := 0
		for _, sp := range src.boundaries {
			total += sp.Len()
		}
		avg = total / len(src.boundaries)
	}
	choice := StrategySentenceAware
	if n >= 4*c.cfg.BaseChunkSize || (avg > 120 && n >= 2*c.cfg.BaseChunkSize) {
		choice = StrategyHierarchical
	}
	logutil.GetLogger(ctx).Debug("adaptive strategy resolved",
		zap.String("choice", string(choice)),
		zap.Int("text_length", n),
		zap.Int("avg_sentence_length", avg))
	chunks, err := c.segs[choice].segment(ctx, c, src)
	if err != nil {
		return nil, err
	}
	for i := range chunks {
		if chunks[i].Metadata.Extra == nil {
			chunks[i].Metadata.Extra = make(map[string]interface{})
		}
		chunks[i].Metadata.Extra["adaptive_choice"] = string(choice)
	}
	return chunks, nil
}

func flattenLevels(levels [][]Chunk) []Chunk {
	total := 0
	for _, lv := range levels {
		total += len(lv)
	}
	out := make([]Chunk, 0, total)
	for _, lv := range levels {
		out = append(out, lv...)
	}
	return out
}

func pow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
