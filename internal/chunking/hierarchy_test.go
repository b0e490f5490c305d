package chunking

import (
	"context"
	"errors"
	"reflect"
	"testing"

	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

func TestEstablishParentChildRelationships(t *testing.T) {
	c := NewChunker(DefaultConfig())
	children := []Chunk{
		{ID: ChunkID(0, 0), Content: "alpha", Index: 0, Level: 0},
		{ID: ChunkID(0, 1), Content: "beta", Index: 1, Level: 0},
	}
	for i := range children {
		c.registerLeaf(&children[i])
	}
	parent := Chunk{ID: ChunkID(1, 0), Content: "alphabeta", Index: 0, Level: 1}
	c.EstablishParentChildRelationships(&parent, children)

	for i, ch := range children {
		if ch.ParentID != "level_1_0" {
			t.Errorf("child %d parent = %q", i, ch.ParentID)
		}
	}
	wantIDs := []string{"level_0_0", "level_0_1"}
	if !reflect.DeepEqual(parent.Metadata.ChildChunks, wantIDs) {
		t.Errorf("parent child list = %v", parent.Metadata.ChildChunks)
	}
	rel := c.ChunkRelationships("level_1_0")
	if !reflect.DeepEqual(rel.Children, wantIDs) {
		t.Errorf("children = %v", rel.Children)
	}
	if !reflect.DeepEqual(rel.Descendants, wantIDs) {
		t.Errorf("descendants = %v", rel.Descendants)
	}
	if sib := c.ChunkRelationships("level_0_0").Siblings; !reflect.DeepEqual(sib, []string{"level_0_1"}) {
		t.Errorf("siblings = %v", sib)
	}

	stats := c.HierarchyStatistics()
	if stats.TotalChunks != 3 || stats.ParentChunks != 1 || stats.LeafChunks != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if !reflect.DeepEqual(stats.LevelsPresent, []int{0, 1}) {
		t.Errorf("levels = %v", stats.LevelsPresent)
	}
	if got := stats.LevelStatistics[0].TotalContentLength; got != 9 {
		t.Errorf("level 0 content length = %d, want 9", got)
	}
}

func TestRegisterLeaf_LabelOverwrite(t *testing.T) {
	c := NewChunker(DefaultConfig())
	first := Chunk{ID: ChunkID(0, 0), Content: "first"}
	second := Chunk{ID: ChunkID(0, 0), Content: "second!"}
	c.registerLeaf(&first)
	c.registerLeaf(&second)

	stats := c.HierarchyStatistics()
	if stats.TotalChunks != 1 {
		t.Fatalf("total chunks = %d, want 1", stats.TotalChunks)
	}
	if got := stats.LevelStatistics[0].TotalContentLength; got != 7 {
		t.Errorf("content length = %d, want replacement length 7", got)
	}
}

func TestHierarchyStatistics_Empty(t *testing.T) {
	c := NewChunker(DefaultConfig())
	stats := c.HierarchyStatistics()
	if stats.TotalChunks != 0 || stats.TotalLevels != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if len(stats.LevelsPresent) != 0 || len(stats.LevelStatistics) != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestChunkRelationships_UnknownLabel(t *testing.T) {
	c := NewChunker(DefaultConfig())
	rel := c.ChunkRelationships("ghost")
	if len(rel.Children) != 0 || len(rel.Siblings) != 0 || len(rel.Descendants) != 0 {
		t.Fatalf("unknown label relationships = %+v", rel)
	}
	if rel.Children == nil || rel.Siblings == nil || rel.Descendants == nil {
		t.Fatalf("lists must be empty, not nil")
	}
}

func TestContextualChunks(t *testing.T) {
	cfg := Config{BaseChunkSize: 50, MaxLevels: 3, Overlap: DefaultOverlapConfig()}
	c := NewChunker(cfg)
	chunks, err := c.ChunkDocument(context.Background(), fiveSentences, StrategySentenceAware)
	if err != nil || len(chunks) != 5 {
		t.Fatalf("setup run = (%d, %v)", len(chunks), err)
	}

	if _, err := c.ContextualChunks("ghost", 1); !errors.Is(err, appErr.ErrUnknownChunk) {
		t.Errorf("unknown chunk err = %v", err)
	}

	got, err := c.ContextualChunks("level_0_2", 1)
	if err != nil {
		t.Fatalf("ContextualChunks: %v", err)
	}
	var ids, relations []string
	for _, cc := range got {
		ids = append(ids, cc.Chunk.ID)
		relations = append(relations, cc.Relation)
	}
	if !reflect.DeepEqual(ids, []string{"level_0_1", "level_0_2", "level_0_3"}) {
		t.Errorf("context ids = %v", ids)
	}
	if !reflect.DeepEqual(relations, []string{"sibling_before", "self", "sibling_after"}) {
		t.Errorf("context relations = %v", relations)
	}
	if got[1].Chunk.Content != chunks[2].Content {
		t.Errorf("self content mismatch")
	}

	got, err = c.ContextualChunks("level_0_0", 2)
	if err != nil {
		t.Fatalf("ContextualChunks: %v", err)
	}
	ids = ids[:0]
	for _, cc := range got {
		ids = append(ids, cc.Chunk.ID)
	}
	if !reflect.DeepEqual(ids, []string{"level_0_0", "level_0_1", "level_0_2"}) {
		t.Errorf("window 2 ids = %v", ids)
	}

	if got, err = c.ContextualChunks("level_0_2", 0); err != nil || len(got) != 1 {
		t.Errorf("window 0 = (%d, %v)", len(got), err)
	}
	if got, err = c.ContextualChunks("level_0_2", -3); err != nil || len(got) != 1 {
		t.Errorf("negative window = (%d, %v)", len(got), err)
	}
}

func TestValidateHierarchyIntegrity_Corruption(t *testing.T) {
	t.Run("missing parent is an orphan", func(t *testing.T) {
		cfg := Config{BaseChunkSize: 50, MaxLevels: 3, Overlap: DefaultOverlapConfig()}
		c := NewChunker(cfg)
		if _, err := c.ChunkDocument(context.Background(), fiveSentences, StrategySentenceAware); err != nil {
			t.Fatalf("setup run: %v", err)
		}
		if report := c.ValidateHierarchyIntegrity(); !report.IsValid {
			t.Fatalf("clean run reported invalid: %+v", report)
		}

		c.SetHierarchyEntry("level_0_0", "level_9_9", nil, 0)
		report := c.ValidateHierarchyIntegrity()
		if report.IsValid {
			t.Errorf("corrupted hierarchy reported valid")
		}
		if !reflect.DeepEqual(report.OrphanedChunks, []string{"level_0_0"}) {
			t.Errorf("orphans = %v", report.OrphanedChunks)
		}
		if len(report.Errors) == 0 {
			t.Errorf("no errors reported")
		}
	})
	t.Run("circular parent chain", func(t *testing.T) {
		c := NewChunker(DefaultConfig())
		c.SetHierarchyEntry("a", "b", nil, 1)
		c.SetHierarchyEntry("b", "a", nil, 2)
		report := c.ValidateHierarchyIntegrity()
		if report.IsValid {
			t.Errorf("cycle reported valid")
		}
		if !reflect.DeepEqual(report.CircularReferences, []string{"a", "b"}) {
			t.Errorf("circular references = %v", report.CircularReferences)
		}
	})
	t.Run("missing child listed", func(t *testing.T) {
		c := NewChunker(DefaultConfig())
		c.SetHierarchyEntry("p", "", []string{"q", "r"}, 1)
		report := c.ValidateHierarchyIntegrity()
		if report.IsValid || len(report.Errors) != 2 {
			t.Errorf("report = %+v", report)
		}
	})
	t.Run("level mismatch is only a warning", func(t *testing.T) {
		c := NewChunker(DefaultConfig())
		c.SetHierarchyEntry("p", "", []string{"q"}, 2)
		c.SetHierarchyEntry("q", "p", nil, 0)
		report := c.ValidateHierarchyIntegrity()
		if !report.IsValid {
			t.Errorf("warning-only case reported invalid: %+v", report)
		}
		if len(report.Warnings) == 0 {
			t.Errorf("level mismatch not surfaced")
		}
	})
}
