package chunking

import (
	"fmt"
	"sort"
	"time"

	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

// hierarchyNode is an arena slot. Nodes are addressed by dense index; byLabel
// maps each label to its slot, and a later run reusing a label overwrites the
// slot in place. State accumulates across runs until Reset.
type hierarchyNode struct {
	chunk    Chunk
	parent   string
	children []string
	level    int
	meta     NodeMetadata
}

type NodeMetadata struct {
	ChildCount         int   `json:"child_count,omitempty"`
	TotalContentLength int   `json:"total_content_length,omitempty"`
	CreationTimestamp  int64 `json:"creation_timestamp,omitempty"`
	ContentLength      int   `json:"content_length,omitempty"`
	SentenceCount      int   `json:"sentence_count,omitempty"`
	HasOverlap         bool  `json:"has_overlap,omitempty"`
}

type HierarchyRelationships struct {
	Children    []string `json:"children"`
	Siblings    []string `json:"siblings"`
	Descendants []string `json:"descendants"`
}

type ContextChunk struct {
	Chunk    Chunk  `json:"chunk"`
	Relation string `json:"relation"`
}

type LevelStats struct {
	ChunkCount         int     `json:"chunk_count"`
	TotalContentLength int     `json:"total_content_length"`
	AvgContentLength   float64 `json:"avg_content_length"`
}

type HierarchyStats struct {
	TotalChunks       int                `json:"total_chunks"`
	TotalLevels       int                `json:"total_levels"`
	LevelsPresent     []int              `json:"levels_present"`
	ParentChunks      int                `json:"parent_chunks"`
	LeafChunks        int                `json:"leaf_chunks"`
	LevelStatistics   map[int]LevelStats `json:"level_statistics"`
	OverlapStatistics OverlapStats       `json:"overlap_statistics"`
}

type IntegrityReport struct {
	IsValid            bool     `json:"is_valid"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
	OrphanedChunks     []string `json:"orphaned_chunks"`
	CircularReferences []string `json:"circular_references"`
}

func (c *Chunker) ensureNode(label string) int {
	if idx, ok := c.byLabel[label]; ok {
		return idx
	}
	c.arena = append(c.arena, hierarchyNode{chunk: Chunk{ID: label}})
	idx := len(c.arena) - 1
	c.byLabel[label] = idx
	return idx
}

func (c *Chunker) registerLeaf(ch *Chunk) {
	node := hierarchyNode{
		chunk: *ch,
		level: ch.Level,
		meta: NodeMetadata{
			ContentLength: runeLen(ch.Content),
			SentenceCount: ch.Metadata.SentenceCount,
			HasOverlap:    ch.OverlapStart != nil || ch.OverlapEnd != nil,
		},
	}
	if idx, ok := c.byLabel[ch.ID]; ok {
		c.arena[idx] = node
		return
	}
	c.arena = append(c.arena, node)
	c.byLabel[ch.ID] = len(c.arena) - 1
}

// EstablishParentChildRelationships registers the parent and wires every
// child to it. Like the hierarchy map it feeds, this trusts its input;
// consistency is only checked on demand by ValidateHierarchyIntegrity.
func (c *Chunker) EstablishParentChildRelationships(parent *Chunk, children []Chunk) {
	ids := make([]string, 0, len(children))
	total := 0
	for i := range children {
		children[i].ParentID = parent.ID
		ids = append(ids, children[i].ID)
		total += runeLen(children[i].Content)
		idx := c.ensureNode(children[i].ID)
		c.arena[idx].parent = parent.ID
		c.arena[idx].chunk.ParentID = parent.ID
		if c.arena[idx].level == 0 && children[i].Level != 0 {
			c.arena[idx].level = children[i].Level
		}
	}
	parent.Metadata.ChildChunks = ids
	pidx := c.ensureNode(parent.ID)
	node := &c.arena[pidx]
	node.chunk = *parent
	node.children = ids
	node.level = parent.Level
	node.meta = NodeMetadata{
		ChildCount:         len(children),
		TotalContentLength: total,
		CreationTimestamp:  time.Now().Unix(),
	}
}

// SetHierarchyEntry writes a raw hierarchy entry, bypassing chunk creation.
// It exists for callers that rebuild hierarchy state from elsewhere and for
// exercising validation; nothing here prevents inconsistent input.
func (c *Chunker) SetHierarchyEntry(label, parent string, children []string, level int) {
	idx := c.ensureNode(label)
	node := &c.arena[idx]
	node.parent = parent
	node.children = append([]string{}, children...)
	node.level = level
	node.chunk.ID = label
	node.chunk.Level = level
	node.chunk.ParentID = parent
}

// ChunkRelationships reports hierarchy links for a chunk id; unknown ids get
// empty lists.
func (c *Chunker) ChunkRelationships(chunkID string) HierarchyRelationships {
	rel := HierarchyRelationships{
		Children:    []string{},
		Siblings:    []string{},
		Descendants: []string{},
	}
	idx, ok := c.byLabel[chunkID]
	if !ok {
		return rel
	}
	node := c.arena[idx]
	rel.Children = append(rel.Children, node.children...)
	rel.Siblings = c.siblingLabels(chunkID, node)
	seen := map[string]struct{}{chunkID: {}}
	c.collectDescendants(node.children, seen, &rel.Descendants)
	return rel
}

func (c *Chunker) siblingLabels(chunkID string, node hierarchyNode) []string {
	siblings := make([]string, 0)
	if node.parent != "" {
		if pidx, ok := c.byLabel[node.parent]; ok {
			for _, id := range c.arena[pidx].children {
				if id != chunkID {
					siblings = append(siblings, id)
				}
			}
		}
		return siblings
	}
	// top-level chunks: same level, no parent
	for _, other := range c.liveNodesByLevel(node.level) {
		if other.chunk.ID != chunkID && other.parent == "" {
			siblings = append(siblings, other.chunk.ID)
		}
	}
	return siblings
}

func (c *Chunker) collectDescendants(children []string, seen map[string]struct{}, out *[]string) {
	for _, id := range children {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		*out = append(*out, id)
		if idx, ok := c.byLabel[id]; ok {
			c.collectDescendants(c.arena[idx].children, seen, out)
		}
	}
}

// ContextualChunks returns the chunk itself plus up to window siblings on
// each side, its parent, and its children.
func (c *Chunker) ContextualChunks(chunkID string, window int) ([]ContextChunk, error) {
	idx, ok := c.byLabel[chunkID]
	if !ok {
		return nil, fmt.Errorf("contextual chunks for %q: %w", chunkID, appErr.ErrUnknownChunk)
	}
	if window < 0 {
		window = 0
	}
	node := c.arena[idx]
	ordered := c.orderedSiblingRow(node)
	self := -1
	for i, sib := range ordered {
		if sib.chunk.ID == chunkID {
			self = i
			break
		}
	}
	out := make([]ContextChunk, 0, 2*window+4)
	if self >= 0 {
		for i := self - window; i < self; i++ {
			if i >= 0 {
				out = append(out, ContextChunk{Chunk: ordered[i].chunk, Relation: "sibling_before"})
			}
		}
	}
	out = append(out, ContextChunk{Chunk: node.chunk, Relation: "self"})
	if self >= 0 {
		for i := self + 1; i <= self+window && i < len(ordered); i++ {
			out = append(out, ContextChunk{Chunk: ordered[i].chunk, Relation: "sibling_after"})
		}
	}
	if node.parent != "" {
		if pidx, ok := c.byLabel[node.parent]; ok {
			out = append(out, ContextChunk{Chunk: c.arena[pidx].chunk, Relation: "parent"})
		}
	}
	for _, childID := range node.children {
		if cidx, ok := c.byLabel[childID]; ok {
			out = append(out, ContextChunk{Chunk: c.arena[cidx].chunk, Relation: "child"})
		}
	}
	return out, nil
}

// orderedSiblingRow returns the node's sibling row (itself included) in
// index order: the parent's children when parented, otherwise the top-level
// chunks of its level.
func (c *Chunker) orderedSiblingRow(node hierarchyNode) []hierarchyNode {
	var row []hierarchyNode
	if node.parent != "" {
		if pidx, ok := c.byLabel[node.parent]; ok {
			for _, id := range c.arena[pidx].children {
				if idx, ok := c.byLabel[id]; ok {
					row = append(row, c.arena[idx])
				}
			}
			return row
		}
	}
	for _, n := range c.liveNodesByLevel(node.level) {
		if n.parent == "" {
			row = append(row, n)
		}
	}
	return row
}

func (c *Chunker) liveNodes() []hierarchyNode {
	nodes := make([]hierarchyNode, 0, len(c.byLabel))
	for _, idx := range c.byLabel {
		nodes = append(nodes, c.arena[idx])
	}
	return nodes
}

func (c *Chunker) liveNodesByLevel(level int) []hierarchyNode {
	nodes := make([]hierarchyNode, 0)
	for _, n := range c.liveNodes() {
		if n.level == level {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].chunk.Index < nodes[j].chunk.Index
	})
	return nodes
}

func (c *Chunker) HierarchyStatistics() HierarchyStats {
	stats := HierarchyStats{
		LevelsPresent:     []int{},
		LevelStatistics:   make(map[int]LevelStats),
		OverlapStatistics: c.overlap.OverlapStatistics(),
	}
	perLevel := make(map[int]*LevelStats)
	for _, node := range c.liveNodes() {
		stats.TotalChunks++
		if len(node.children) > 0 {
			stats.ParentChunks++
		} else {
			stats.LeafChunks++
		}
		ls, ok := perLevel[node.level]
		if !ok {
			ls = &LevelStats{}
			perLevel[node.level] = ls
		}
		ls.ChunkCount++
		ls.TotalContentLength += runeLen(node.chunk.Content)
	}
	for level, ls := range perLevel {
		if ls.ChunkCount > 0 {
			ls.AvgContentLength = float64(ls.TotalContentLength) / float64(ls.ChunkCount)
		}
		stats.LevelStatistics[level] = *ls
		stats.LevelsPresent = append(stats.LevelsPresent, level)
	}
	sort.Ints(stats.LevelsPresent)
	stats.TotalLevels = len(stats.LevelsPresent)
	return stats
}

// ValidateHierarchyIntegrity checks the live hierarchy on demand: dangling
// parent or child references and circular parent chains are errors, level
// mismatches are warnings.
func (c *Chunker) ValidateHierarchyIntegrity() IntegrityReport {
	report := IntegrityReport{
		IsValid:            true,
		Errors:             []string{},
		Warnings:           []string{},
		OrphanedChunks:     []string{},
		CircularReferences: []string{},
	}
	labels := make([]string, 0, len(c.byLabel))
	for label := range c.byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		node := c.arena[c.byLabel[label]]
		if node.parent != "" {
			pidx, ok := c.byLabel[node.parent]
			if !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("chunk %s references missing parent %s", label, node.parent))
				report.OrphanedChunks = append(report.OrphanedChunks, label)
			} else if c.arena[pidx].level != node.level+1 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("chunk %s at level %d has parent %s at level %d", label, node.level, node.parent, c.arena[pidx].level))
			}
		}
		for _, childID := range node.children {
			if _, ok := c.byLabel[childID]; !ok {
				report.Errors = append(report.Errors, fmt.Sprintf("chunk %s lists missing child %s", label, childID))
			}
		}
		if cycle := c.findParentCycle(label); cycle {
			report.Errors = append(report.Errors, fmt.Sprintf("chunk %s participates in a circular parent chain", label))
			report.CircularReferences = append(report.CircularReferences, label)
		}
	}
	report.IsValid = len(report.Errors) == 0
	return report
}

func (c *Chunker) findParentCycle(label string) bool {
	seen := make(map[string]struct{})
	cur := label
	for {
		if _, ok := seen[cur]; ok {
			return true
		}
		seen[cur] = struct{}{}
		idx, ok := c.byLabel[cur]
		if !ok {
			return false
		}
		parent := c.arena[idx].parent
		if parent == "" {
			return false
		}
		cur = parent
	}
}
