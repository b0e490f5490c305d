package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/filestore"
	"github.com/cmejo/AI-Scholar-sub014/internal/ingest"
	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/timeutil"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
)

type IngestService struct {
	docs     *repo.DocumentRepo
	chunks   *repo.ChunkRepo
	runs     *repo.IngestRunRepo
	chunking *ChunkingService
	store    filestore.Store
}

func NewIngestService(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, runs *repo.IngestRunRepo, chunkingSvc *ChunkingService, store filestore.Store) *IngestService {
	return &IngestService{docs: docs, chunks: chunks, runs: runs, chunking: chunkingSvc, store: store}
}

type IngestInput struct {
	DocumentID  string
	Title       string
	Content     string
	ContentType string
	Strategy    string
	Source      string
}

type IngestResult struct {
	DocumentID string `json:"document_id"`
	Strategy   string `json:"strategy"`
	ChunkCount int    `json:"chunk_count"`
	Levels     int    `json:"levels"`
	CostMs     int64  `json:"cost_ms"`
	Skipped    bool   `json:"skipped"`
}

// Ingest runs the full pipeline: normalize, short-circuit on unchanged
// content, archive the raw source, chunk, then replace the stored rows and
// record a run. Chunk rows and the legacy back-compat rows are swapped in one
// transaction.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("ingest: title: %w", appErr.ErrInvalid)
	}
	normalized := ingest.Normalize(ctx, input.Content, input.ContentType)
	if normalized == "" {
		return nil, fmt.Errorf("ingest: %w", appErr.ErrEmptyDocument)
	}
	contentHash := ingest.ContentHash(normalized)

	docID := input.DocumentID
	if docID == "" {
		docID = newID()
	}
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))

	existing, err := s.docs.GetByID(ctx, docID)
	if err != nil && !errors.Is(err, appErr.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.ContentHash == contentHash {
		logger.Info("content unchanged, skipping ingest")
		levels := 0
		if run, rerr := s.runs.LatestByDocument(ctx, docID); rerr == nil {
			levels = run.Levels
		}
		return &IngestResult{
			DocumentID: docID,
			Strategy:   existing.Strategy,
			ChunkCount: existing.ChunkCount,
			Levels:     levels,
			Skipped:    true,
		}, nil
	}

	archiveKey := fmt.Sprintf("documents/%s/source.txt", docID)
	if s.store != nil {
		if err := s.store.Save(ctx, archiveKey, textReadCloser{strings.NewReader(input.Content)}, int64(len(input.Content))); err != nil {
			logger.Warn("failed to archive source text", zap.Error(err))
			archiveKey = ""
		}
	} else {
		archiveKey = ""
	}

	start := timeutil.NowMillis()
	chunks, err := s.chunking.ChunkDocument(ctx, normalized, input.Strategy)
	costMs := timeutil.NowMillis() - start
	now := timeutil.NowUnix()
	textLength := utf8.RuneCountInString(normalized)
	if err != nil {
		s.recordRun(ctx, &model.IngestRun{
			ID:         newID(),
			DocumentID: docID,
			Strategy:   input.Strategy,
			TextLength: textLength,
			CostMs:     costMs,
			Status:     repo.IngestStatusFailed,
			Error:      err.Error(),
			Ctime:      now,
		})
		return nil, err
	}

	strategy := input.Strategy
	levels := 0
	if len(chunks) > 0 {
		strategy = chunks[0].Metadata.Strategy
		for _, ch := range chunks {
			if ch.Level+1 > levels {
				levels = ch.Level + 1
			}
		}
	}

	enhanced, legacy, err := buildChunkRows(docID, chunks, now)
	if err != nil {
		return nil, err
	}
	if err := s.chunks.ReplaceForDocument(ctx, docID, enhanced, legacy); err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:          docID,
		Title:       input.Title,
		Source:      input.Source,
		ContentHash: contentHash,
		CharCount:   textLength,
		ChunkCount:  len(chunks),
		Strategy:    strategy,
		ArchiveKey:  archiveKey,
		Ctime:       now,
		Mtime:       now,
	}
	if existing != nil {
		doc.Ctime = existing.Ctime
		if err := s.docs.Update(ctx, doc); err != nil {
			return nil, err
		}
	} else {
		if err := s.docs.Create(ctx, doc); err != nil {
			return nil, err
		}
	}

	s.recordRun(ctx, &model.IngestRun{
		ID:         newID(),
		DocumentID: docID,
		Strategy:   strategy,
		ChunkCount: len(chunks),
		Levels:     levels,
		TextLength: textLength,
		CostMs:     costMs,
		Status:     repo.IngestStatusOK,
		Ctime:      now,
	})
	logger.Info("document ingested",
		zap.String("strategy", strategy),
		zap.Int("chunk_count", len(chunks)),
		zap.Int("levels", levels),
		zap.Int64("cost_ms", costMs),
	)
	return &IngestResult{
		DocumentID: docID,
		Strategy:   strategy,
		ChunkCount: len(chunks),
		Levels:     levels,
		CostMs:     costMs,
	}, nil
}

func (s *IngestService) recordRun(ctx context.Context, run *model.IngestRun) {
	if err := s.runs.Create(ctx, run); err != nil {
		logutil.GetLogger(ctx).Warn("failed to record ingest run", zap.String("doc_id", run.DocumentID), zap.Error(err))
	}
}

func (s *IngestService) GetDocument(ctx context.Context, docID string) (*model.Document, error) {
	return s.docs.GetByID(ctx, docID)
}

func (s *IngestService) ListDocuments(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	return s.docs.List(ctx, limit, offset)
}

func (s *IngestService) CountDocuments(ctx context.Context) (int64, error) {
	return s.docs.Count(ctx)
}

func (s *IngestService) DocumentChunks(ctx context.Context, docID string, level *int) ([]model.DocumentChunk, error) {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	if level != nil {
		return s.chunks.ListByDocumentLevel(ctx, docID, *level)
	}
	return s.chunks.ListByDocument(ctx, docID)
}

func (s *IngestService) LegacyChunks(ctx context.Context, docID string) ([]model.DocumentChunkLegacy, error) {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.chunks.ListLegacyByDocument(ctx, docID)
}

func (s *IngestService) ListRuns(ctx context.Context, docID string, limit uint) ([]model.IngestRun, error) {
	if _, err := s.docs.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	return s.runs.ListByDocument(ctx, docID, limit)
}

func (s *IngestService) DeleteDocument(ctx context.Context, docID string) error {
	if err := s.docs.Delete(ctx, docID); err != nil {
		return err
	}
	if err := s.chunks.DeleteByDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.runs.DeleteByDocument(ctx, docID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("document deleted", zap.String("doc_id", docID))
	return nil
}

func buildChunkRows(docID string, chunks []chunking.Chunk, now int64) ([]model.DocumentChunk, []model.DocumentChunkLegacy, error) {
	enhanced := make([]model.DocumentChunk, 0, len(chunks))
	legacy := make([]model.DocumentChunkLegacy, 0)
	for _, ch := range chunks {
		bounds, err := json.Marshal(ch.SentenceBoundaries)
		if err != nil {
			return nil, nil, err
		}
		meta, err := json.Marshal(ch.Metadata)
		if err != nil {
			return nil, nil, err
		}
		enhanced = append(enhanced, model.DocumentChunk{
			DocumentID:         docID,
			ChunkLabel:         ch.ID,
			Content:            ch.Content,
			ChunkIndex:         ch.Index,
			Level:              ch.Level,
			StartChar:          ch.StartChar,
			EndChar:            ch.EndChar,
			ParentLabel:        ch.ParentID,
			OverlapStart:       ch.OverlapStart,
			OverlapEnd:         ch.OverlapEnd,
			SentenceBoundaries: string(bounds),
			Metadata:           string(meta),
			Ctime:              now,
		})
		if ch.Level != 0 {
			continue
		}
		legacyMeta, err := json.Marshal(map[string]interface{}{
			"chunk_id":      ch.ID,
			"chunk_level":   ch.Level,
			"parent_id":     ch.ParentID,
			"start_char":    ch.StartChar,
			"end_char":      ch.EndChar,
			"overlap_start": ch.OverlapStart,
			"overlap_end":   ch.OverlapEnd,
			"metadata":      ch.Metadata,
		})
		if err != nil {
			return nil, nil, err
		}
		legacy = append(legacy, model.DocumentChunkLegacy{
			DocumentID: docID,
			ChunkIndex: ch.Index,
			Content:    ch.Content,
			Metadata:   string(legacyMeta),
			Ctime:      now,
		})
	}
	return enhanced, legacy, nil
}

type textReadCloser struct {
	*strings.Reader
}

func (textReadCloser) Close() error { return nil }
