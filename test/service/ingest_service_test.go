package service_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/config"
	"github.com/cmejo/AI-Scholar-sub014/internal/filestore"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
	"github.com/cmejo/AI-Scholar-sub014/test/testutil"
)

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setupIngestService(t *testing.T) (*service.IngestService, string, func()) {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)

	tmpDir, err := os.MkdirTemp("", "scholar-archive-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": tmpDir},
	})
	require.NoError(t, err)

	chunkingSvc := service.NewChunkingService(config.DefaultChunking(), chunking.NewHeuristicSplitter())
	svc := service.NewIngestService(
		repo.NewDocumentRepo(db),
		repo.NewChunkRepo(db),
		repo.NewIngestRunRepo(db),
		chunkingSvc,
		store,
	)
	return svc, tmpDir, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

func longText() string {
	paragraph := "The archive ingests scholarly papers from several sources. Each paper is normalized before chunking. " +
		"Sentence boundaries guide the overlap regions between neighbouring chunks. Hierarchical grouping builds parent " +
		"chunks from runs of adjacent children. Retrieval later walks this hierarchy to assemble context windows. "
	return strings.Repeat(paragraph, 14)
}

func TestIngestServiceLifecycle(t *testing.T) {
	svc, archiveDir, cleanup := setupIngestService(t)
	defer cleanup()

	docID := "ingest-doc-" + newTestID()
	result, err := svc.Ingest(context.Background(), service.IngestInput{
		DocumentID: docID,
		Title:      "Chunking Paper",
		Content:    longText(),
		Source:     "api",
	})
	require.NoError(t, err)
	require.False(t, result.Skipped)
	require.Equal(t, "hierarchical", result.Strategy)
	require.Greater(t, result.ChunkCount, 1)
	require.GreaterOrEqual(t, result.Levels, 2)

	doc, err := svc.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	require.Equal(t, "Chunking Paper", doc.Title)
	require.Equal(t, result.ChunkCount, doc.ChunkCount)
	require.Greater(t, doc.CharCount, 0)
	require.NotEmpty(t, doc.ArchiveKey)

	archived, err := os.ReadFile(filepath.Join(archiveDir, "documents", docID, "source.txt"))
	require.NoError(t, err)
	require.Equal(t, longText(), string(archived))

	all, err := svc.DocumentChunks(context.Background(), docID, nil)
	require.NoError(t, err)
	require.Len(t, all, result.ChunkCount)

	zero := 0
	leaves, err := svc.DocumentChunks(context.Background(), docID, &zero)
	require.NoError(t, err)
	require.NotEmpty(t, leaves)
	require.Less(t, len(leaves), len(all))

	legacy, err := svc.LegacyChunks(context.Background(), docID)
	require.NoError(t, err)
	require.Len(t, legacy, len(leaves))

	skipped, err := svc.Ingest(context.Background(), service.IngestInput{
		DocumentID: docID,
		Title:      "Chunking Paper",
		Content:    longText(),
		Source:     "api",
	})
	require.NoError(t, err)
	require.True(t, skipped.Skipped)
	require.Equal(t, result.ChunkCount, skipped.ChunkCount)
	require.Equal(t, result.Levels, skipped.Levels)

	rechunked, err := svc.Ingest(context.Background(), service.IngestInput{
		DocumentID: docID,
		Title:      "Chunking Paper",
		Content:    longText() + " A closing remark changes the hash.",
		Strategy:   "sentence_aware",
	})
	require.NoError(t, err)
	require.False(t, rechunked.Skipped)
	require.Equal(t, "sentence_aware", rechunked.Strategy)

	runs, err := svc.ListRuns(context.Background(), docID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		require.Equal(t, repo.IngestStatusOK, run.Status)
	}

	_, err = svc.Ingest(context.Background(), service.IngestInput{
		DocumentID: docID,
		Title:      "Chunking Paper",
		Content:    longText() + " Another change to defeat the skip path.",
		Strategy:   "bogus",
	})
	require.ErrorIs(t, err, appErr.ErrUnknownStrategy)

	runs, err = svc.ListRuns(context.Background(), docID, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	failed := 0
	for _, run := range runs {
		if run.Status == repo.IngestStatusFailed {
			failed++
			require.NotEmpty(t, run.Error)
		}
	}
	require.Equal(t, 1, failed)

	require.NoError(t, svc.DeleteDocument(context.Background(), docID))
	_, err = svc.GetDocument(context.Background(), docID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	_, err = svc.DocumentChunks(context.Background(), docID, nil)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestIngestServiceRejectsBadInput(t *testing.T) {
	svc, _, cleanup := setupIngestService(t)
	defer cleanup()

	_, err := svc.Ingest(context.Background(), service.IngestInput{Title: "  ", Content: "text"})
	require.ErrorIs(t, err, appErr.ErrInvalid)

	_, err = svc.Ingest(context.Background(), service.IngestInput{Title: "empty", Content: "   "})
	require.ErrorIs(t, err, appErr.ErrEmptyDocument)
}
