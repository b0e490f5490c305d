package chunking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	maxOverlapPercentage     = 0.5
	defaultOverlapPercentage = 0.15
	defaultMinOverlapChars   = 50
	defaultMaxOverlapChars   = 200
)

type OverlapConfig struct {
	OverlapPercentage float64 `json:"overlap_percentage"`
	MinOverlapChars   int     `json:"min_overlap_chars"`
	MaxOverlapChars   int     `json:"max_overlap_chars"`
}

func DefaultOverlapConfig() OverlapConfig {
	return OverlapConfig{
		OverlapPercentage: defaultOverlapPercentage,
		MinOverlapChars:   defaultMinOverlapChars,
		MaxOverlapChars:   defaultMaxOverlapChars,
	}
}

type ValidationResult struct {
	IsValid         bool     `json:"is_valid"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations"`
}

// Validate checks raw values against the configuration domain. It reports
// and recommends; clamping is the manager's job.
func (c OverlapConfig) Validate() ValidationResult {
	res := ValidationResult{IsValid: true, Warnings: []string{}, Recommendations: []string{}}
	if c.OverlapPercentage <= 0 {
		res.IsValid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("overlap_percentage %.3f is out of domain (0, 0.5]", c.OverlapPercentage))
	} else if c.OverlapPercentage > maxOverlapPercentage {
		res.IsValid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("overlap_percentage %.3f exceeds maximum 0.5", c.OverlapPercentage))
	}
	if c.MinOverlapChars < 0 {
		res.IsValid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("min_overlap_chars %d is negative", c.MinOverlapChars))
	}
	if c.MaxOverlapChars <= 0 {
		res.IsValid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("max_overlap_chars %d must be positive", c.MaxOverlapChars))
	}
	if c.MinOverlapChars > c.MaxOverlapChars {
		res.IsValid = false
		res.Warnings = append(res.Warnings, fmt.Sprintf("min_overlap_chars %d exceeds max_overlap_chars %d", c.MinOverlapChars, c.MaxOverlapChars))
	}
	if c.OverlapPercentage > 0.3 && c.OverlapPercentage <= maxOverlapPercentage {
		res.Recommendations = append(res.Recommendations, "overlap above 30% duplicates a lot of text; 0.1-0.3 works well for most documents")
	}
	if c.MinOverlapChars > 0 && c.MinOverlapChars < 10 {
		res.Recommendations = append(res.Recommendations, "min_overlap_chars below 10 rarely preserves a full sentence")
	}
	return res
}

// clampOverlapConfig returns the nearest in-domain configuration plus one
// warning per adjusted field. Out-of-domain values never hard-fail.
func clampOverlapConfig(cfg OverlapConfig) (OverlapConfig, []string) {
	var warnings []string
	if cfg.OverlapPercentage <= 0 {
		warnings = append(warnings, fmt.Sprintf("overlap_percentage %.3f out of domain, using default %.2f", cfg.OverlapPercentage, defaultOverlapPercentage))
		cfg.OverlapPercentage = defaultOverlapPercentage
	} else if cfg.OverlapPercentage > maxOverlapPercentage {
		warnings = append(warnings, fmt.Sprintf("overlap_percentage %.3f clamped to %.1f", cfg.OverlapPercentage, maxOverlapPercentage))
		cfg.OverlapPercentage = maxOverlapPercentage
	}
	if cfg.MinOverlapChars < 0 {
		warnings = append(warnings, fmt.Sprintf("min_overlap_chars %d clamped to 0", cfg.MinOverlapChars))
		cfg.MinOverlapChars = 0
	}
	if cfg.MaxOverlapChars <= 0 {
		warnings = append(warnings, fmt.Sprintf("max_overlap_chars %d out of domain, using default %d", cfg.MaxOverlapChars, defaultMaxOverlapChars))
		cfg.MaxOverlapChars = defaultMaxOverlapChars
	}
	if cfg.MinOverlapChars > cfg.MaxOverlapChars {
		warnings = append(warnings, fmt.Sprintf("min_overlap_chars %d clamped down to max_overlap_chars %d", cfg.MinOverlapChars, cfg.MaxOverlapChars))
		cfg.MinOverlapChars = cfg.MaxOverlapChars
	}
	return cfg, warnings
}

type OverlapStats struct {
	TotalChunks              int            `json:"total_chunks"`
	ChunksWithOverlap        int            `json:"chunks_with_overlap"`
	AverageOverlapPercentage float64        `json:"average_overlap_percentage"`
	OverlapDistribution      map[string]int `json:"overlap_distribution"`
}

// OverlapManager borrows sentence-aligned context between adjacent chunks and
// tracks the relationship graph. Not safe for concurrent use; the owning
// chunker is single-writer.
type OverlapManager struct {
	cfg      OverlapConfig
	warnings []string

	rels         map[string]*Relationships
	totalChunks  int
	overlapped   int
	pctSum       float64
	pctCount     int
	distribution map[string]int
}

func NewOverlapManager(cfg OverlapConfig) *OverlapManager {
	clamped, warns := clampOverlapConfig(cfg)
	return &OverlapManager{
		cfg:          clamped,
		warnings:     warns,
		rels:         make(map[string]*Relationships),
		distribution: make(map[string]int),
	}
}

func (m *OverlapManager) Config() OverlapConfig {
	return m.cfg
}

func (m *OverlapManager) setConfig(cfg OverlapConfig, warnings []string) {
	m.cfg = cfg
	m.warnings = warnings
}

// ValidateConfiguration reports on the stored (post-clamp) configuration and
// surfaces any clamp warnings retained since the last configuration change.
func (m *OverlapManager) ValidateConfiguration() ValidationResult {
	res := m.cfg.Validate()
	if len(m.warnings) > 0 {
		res.Warnings = append(append([]string{}, m.warnings...), res.Warnings...)
	}
	return res
}

// ComputeOverlapBoundaries annotates an ordered level-0 chunk sequence in
// place: for each adjacent pair the later chunk borrows a sentence-aligned
// region from the earlier chunk's tail and the earlier borrows from the
// later's head, both sized by clamp(pct*min(len_i, len_j), min, max). The
// configured ceiling always wins over sentence alignment. Borrowed text is
// folded into Content; OverlapStart/OverlapEnd record the borrowed rune
// counts. The first chunk never gets OverlapStart, the last never OverlapEnd.
func (m *OverlapManager) ComputeOverlapBoundaries(ctx context.Context, chunks []Chunk, sourceText string, detector *BoundaryDetector) []Chunk {
	if len(chunks) == 0 {
		return chunks
	}
	// labels repeat across runs; each compute owns its records outright
	for i := range chunks {
		m.rels[chunks[i].ID] = emptyRelationships()
	}
	if len(chunks) > 1 {
		src := []rune(sourceText)
		bounds := detector.DetectBoundaries(sourceText)
		starts := make([]int, 0, len(bounds))
		ends := make([]int, 0, len(bounds))
		for _, sp := range bounds {
			starts = append(starts, sp.Start)
			ends = append(ends, sp.End)
		}
		for i := 0; i+1 < len(chunks); i++ {
			m.annotatePair(&chunks[i], &chunks[i+1], starts, ends)
		}
		for i := range chunks {
			m.foldContent(&chunks[i], src)
		}
	}
	m.recordStats(chunks)
	logutil.GetLogger(ctx).Debug("overlap boundaries computed",
		zap.Int("chunks", len(chunks)),
		zap.Float64("overlap_percentage", m.cfg.OverlapPercentage))
	return chunks
}

func (m *OverlapManager) annotatePair(earlier, later *Chunk, starts, ends []int) {
	lenI := earlier.ownLength()
	lenJ := later.ownLength()
	if lenI <= 0 || lenJ <= 0 ||
		earlier.StartChar == nil || earlier.EndChar == nil ||
		later.StartChar == nil || later.EndChar == nil {
		m.linkAdjacent(earlier, later, 0, 0)
		return
	}
	minLen := lenI
	if lenJ < minLen {
		minLen = lenJ
	}
	candidate := int(math.Round(m.cfg.OverlapPercentage * float64(minLen)))
	if candidate < m.cfg.MinOverlapChars {
		candidate = m.cfg.MinOverlapChars
	}
	if candidate > m.cfg.MaxOverlapChars {
		candidate = m.cfg.MaxOverlapChars
	}

	startI := *earlier.StartChar
	endI := *earlier.EndChar
	startJ := *later.StartChar
	endJ := *later.EndChar

	backLen := m.snapBackward(starts, startI, endI, candidate)
	fwdLen := m.snapForward(ends, startJ, endJ, candidate)

	if backLen > 0 {
		later.OverlapStart = intPtr(backLen)
	}
	if fwdLen > 0 {
		earlier.OverlapEnd = intPtr(fwdLen)
	}
	m.linkAdjacent(earlier, later, backLen, fwdLen)
}

// snapBackward sizes the region the later chunk borrows from [startI, endI).
// Preference order: grow to the enclosing sentence start, shrink to the next
// sentence start, fall back to the raw cut, never exceeding the ceiling.
func (m *OverlapManager) snapBackward(starts []int, startI, endI, candidate int) int {
	if candidate > endI-startI {
		candidate = endI - startI
	}
	if candidate <= 0 {
		return 0
	}
	rawStart := endI - candidate
	// largest sentence start in [startI, rawStart]
	idx := sort.SearchInts(starts, rawStart+1) - 1
	if idx >= 0 && starts[idx] >= startI {
		if endI-starts[idx] <= m.cfg.MaxOverlapChars {
			return endI - starts[idx]
		}
	}
	// smallest sentence start in (rawStart, endI)
	idx = sort.SearchInts(starts, rawStart+1)
	if idx < len(starts) && starts[idx] < endI {
		return endI - starts[idx]
	}
	return candidate
}

// snapForward sizes the region the earlier chunk borrows from [startJ, endJ).
func (m *OverlapManager) snapForward(ends []int, startJ, endJ, candidate int) int {
	if candidate > endJ-startJ {
		candidate = endJ - startJ
	}
	if candidate <= 0 {
		return 0
	}
	rawEnd := startJ + candidate
	// smallest sentence end in [rawEnd, endJ]
	idx := sort.SearchInts(ends, rawEnd)
	if idx < len(ends) && ends[idx] <= endJ {
		if ends[idx]-startJ <= m.cfg.MaxOverlapChars {
			return ends[idx] - startJ
		}
	}
	// largest sentence end in (startJ, rawEnd)
	idx = sort.SearchInts(ends, rawEnd) - 1
	if idx >= 0 && ends[idx] > startJ {
		return ends[idx] - startJ
	}
	return candidate
}

func (m *OverlapManager) foldContent(c *Chunk, src []rune) {
	if c.StartChar == nil || c.EndChar == nil {
		return
	}
	back := ptrVal(c.OverlapStart)
	fwd := ptrVal(c.OverlapEnd)
	if back == 0 && fwd == 0 {
		return
	}
	from := *c.StartChar - back
	if from < 0 {
		from = 0
	}
	to := *c.EndChar + fwd
	if to > len(src) {
		to = len(src)
	}
	c.Content = string(src[from:to])
}

func (m *OverlapManager) linkAdjacent(earlier, later *Chunk, backLen, fwdLen int) {
	relI := m.ensureRelationship(earlier.ID)
	relJ := m.ensureRelationship(later.ID)
	relI.AdjacentChunks = append(relI.AdjacentChunks, later.ID)
	relJ.AdjacentChunks = append(relJ.AdjacentChunks, earlier.ID)
	if backLen > 0 || fwdLen > 0 {
		relI.OverlapsWith = append(relI.OverlapsWith, later.ID)
		relJ.OverlappedBy = append(relJ.OverlappedBy, earlier.ID)
	}
	relI.OverlapMetrics.ForwardOverlapChars = fwdLen
	relJ.OverlapMetrics.BackwardOverlapChars = backLen
}

func (m *OverlapManager) ensureRelationship(chunkID string) *Relationships {
	if rel, ok := m.rels[chunkID]; ok {
		return rel
	}
	rel := emptyRelationships()
	m.rels[chunkID] = rel
	return rel
}

func emptyRelationships() *Relationships {
	return &Relationships{
		OverlapsWith:   []string{},
		OverlappedBy:   []string{},
		AdjacentChunks: []string{},
	}
}

func (m *OverlapManager) recordStats(chunks []Chunk) {
	for i := range chunks {
		c := &chunks[i]
		m.totalChunks++
		back := ptrVal(c.OverlapStart)
		fwd := ptrVal(c.OverlapEnd)
		own := c.ownLength()
		pct := 0.0
		if own > 0 {
			pct = float64(back+fwd) / float64(own)
		}
		if back > 0 || fwd > 0 {
			m.overlapped++
		}
		m.pctSum += pct
		m.pctCount++
		m.distribution[overlapBucket(pct)]++
		rel := m.ensureRelationship(c.ID)
		rel.OverlapMetrics.OverlapPercentageActual = pct
		relCopy := *rel
		c.Metadata.Relationships = &relCopy
	}
}

func overlapBucket(pct float64) string {
	switch {
	case pct <= 0:
		return "none"
	case pct <= 0.05:
		return "0-5%"
	case pct <= 0.10:
		return "5-10%"
	case pct <= 0.20:
		return "10-20%"
	case pct <= 0.35:
		return "20-35%"
	default:
		return ">35%"
	}
}

// registerInherited stores adjacency and inherited overlap metrics for
// aggregated (level >= 1) chunks without touching the lifetime statistics,
// which track level-0 annotation only.
func (m *OverlapManager) registerInherited(chunks []Chunk) {
	for i := range chunks {
		m.rels[chunks[i].ID] = emptyRelationships()
	}
	for i := 0; i+1 < len(chunks); i++ {
		earlier := &chunks[i]
		later := &chunks[i+1]
		m.linkAdjacent(earlier, later, ptrVal(later.OverlapStart), ptrVal(earlier.OverlapEnd))
	}
	for i := range chunks {
		c := &chunks[i]
		rel := m.ensureRelationship(c.ID)
		own := c.ownLength()
		if own > 0 {
			rel.OverlapMetrics.OverlapPercentageActual = float64(ptrVal(c.OverlapStart)+ptrVal(c.OverlapEnd)) / float64(own)
		}
		relCopy := *rel
		c.Metadata.Relationships = &relCopy
	}
}

// OverlapContent materializes the borrowed substrings for a chunk, preferring
// source offsets and falling back to the folded content itself.
func (m *OverlapManager) OverlapContent(c *Chunk, sourceText string) (string, string) {
	back := ptrVal(c.OverlapStart)
	fwd := ptrVal(c.OverlapEnd)
	if back == 0 && fwd == 0 {
		return "", ""
	}
	if c.StartChar != nil && c.EndChar != nil && sourceText != "" {
		src := []rune(sourceText)
		before := ""
		after := ""
		if from := *c.StartChar - back; back > 0 && from >= 0 && *c.StartChar <= len(src) {
			before = string(src[from:*c.StartChar])
		}
		if to := *c.EndChar + fwd; fwd > 0 && to <= len(src) && *c.EndChar >= 0 {
			after = string(src[*c.EndChar:to])
		}
		return before, after
	}
	runes := []rune(c.Content)
	before := ""
	after := ""
	if back > 0 && back <= len(runes) {
		before = string(runes[:back])
	}
	if fwd > 0 && fwd <= len(runes) {
		after = string(runes[len(runes)-fwd:])
	}
	return before, after
}

// ChunkRelationships returns the stored record or an all-empty default.
func (m *OverlapManager) ChunkRelationships(chunkID string) Relationships {
	if rel, ok := m.rels[chunkID]; ok {
		return *rel
	}
	return *emptyRelationships()
}

func (m *OverlapManager) OverlapStatistics() OverlapStats {
	stats := OverlapStats{
		TotalChunks:         m.totalChunks,
		ChunksWithOverlap:   m.overlapped,
		OverlapDistribution: make(map[string]int, len(m.distribution)),
	}
	if m.pctCount > 0 {
		stats.AverageOverlapPercentage = m.pctSum / float64(m.pctCount)
	}
	for k, v := range m.distribution {
		stats.OverlapDistribution[k] = v
	}
	return stats
}
