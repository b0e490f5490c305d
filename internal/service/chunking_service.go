package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/config"
)

// ChunkingService owns the process-wide chunker. The chunker is single-writer
// state, so every entry point takes the mutex; hierarchy and overlap records
// accumulate across calls until Reset.
type ChunkingService struct {
	mu      sync.Mutex
	chunker *chunking.Chunker
}

func NewChunkingService(cfg config.ChunkingConfig, splitter chunking.SentenceSplitter) *ChunkingService {
	coreCfg := chunking.Config{
		BaseChunkSize: cfg.BaseChunkSize,
		MaxLevels:     cfg.MaxLevels,
		Overlap: chunking.OverlapConfig{
			OverlapPercentage: cfg.OverlapPercentage,
			MinOverlapChars:   cfg.MinOverlapChars,
			MaxOverlapChars:   cfg.MaxOverlapChars,
		},
	}
	return &ChunkingService{
		chunker: chunking.NewChunker(coreCfg, chunking.WithSplitter(splitter)),
	}
}

type ChunkRelationshipView struct {
	ChunkID   string                          `json:"chunk_id"`
	Hierarchy chunking.HierarchyRelationships `json:"hierarchy"`
	Overlap   chunking.Relationships          `json:"overlap"`
}

func (s *ChunkingService) ChunkDocument(ctx context.Context, text string, strategy string) ([]chunking.Chunk, error) {
	if strategy == "" {
		strategy = string(chunking.StrategyHierarchical)
	}
	parsed, err := chunking.ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.ChunkDocument(ctx, text, parsed)
}

func (s *ChunkingService) ContextualChunks(ctx context.Context, chunkID string, window int) ([]chunking.ContextChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.ContextualChunks(chunkID, window)
}

func (s *ChunkingService) Relationships(ctx context.Context, chunkID string) ChunkRelationshipView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ChunkRelationshipView{
		ChunkID:   chunkID,
		Hierarchy: s.chunker.ChunkRelationships(chunkID),
		Overlap:   s.chunker.OverlapManager().ChunkRelationships(chunkID),
	}
}

func (s *ChunkingService) HierarchyStatistics(ctx context.Context) chunking.HierarchyStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.HierarchyStatistics()
}

func (s *ChunkingService) ValidateIntegrity(ctx context.Context) chunking.IntegrityReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.ValidateHierarchyIntegrity()
}

func (s *ChunkingService) OverlapStatistics(ctx context.Context) chunking.OverlapStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.OverlapManager().OverlapStatistics()
}

func (s *ChunkingService) UpdateOverlapConfiguration(ctx context.Context, upd chunking.OverlapUpdate) chunking.ConfigChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.UpdateOverlapConfiguration(ctx, upd)
}

func (s *ChunkingService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunker.Reset()
	logutil.GetLogger(ctx).Info("chunking state reset")
}

func (s *ChunkingService) Config() chunking.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunker.Config()
}
