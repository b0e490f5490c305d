package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/dbutil"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

var chunkColumns = []string{"document_id", "chunk_label", "content", "chunk_index", "level", "start_char", "end_char", "parent_label", "overlap_start", "overlap_end", "sentence_boundaries", "metadata", "ctime"}

var legacyChunkColumns = []string{"document_id", "chunk_index", "content", "metadata", "ctime"}

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceForDocument swaps out both chunk tables for a document in one
// transaction so readers never observe a partially written hierarchy.
func (r *ChunkRepo) ReplaceForDocument(ctx context.Context, docID string, chunks []model.DocumentChunk, legacy []model.DocumentChunkLegacy) error {
	return dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"document_chunks", "document_chunks_legacy"} {
			sqlStr, args, err := builder.BuildDelete(table, map[string]interface{}{"document_id": docID})
			if err != nil {
				return err
			}
			sqlStr, args = dbutil.Finalize(sqlStr, args)
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return err
			}
		}
		if len(chunks) > 0 {
			rows := make([]map[string]interface{}, 0, len(chunks))
			for _, c := range chunks {
				rows = append(rows, map[string]interface{}{
					"document_id":         c.DocumentID,
					"chunk_label":         c.ChunkLabel,
					"content":             c.Content,
					"chunk_index":         c.ChunkIndex,
					"level":               c.Level,
					"start_char":          c.StartChar,
					"end_char":            c.EndChar,
					"parent_label":        c.ParentLabel,
					"overlap_start":       c.OverlapStart,
					"overlap_end":         c.OverlapEnd,
					"sentence_boundaries": c.SentenceBoundaries,
					"metadata":            c.Metadata,
					"ctime":               c.Ctime,
				})
			}
			sqlStr, args, err := builder.BuildInsert("document_chunks", rows)
			if err != nil {
				return err
			}
			sqlStr, args = dbutil.Finalize(sqlStr, args)
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return err
			}
		}
		if len(legacy) > 0 {
			rows := make([]map[string]interface{}, 0, len(legacy))
			for _, c := range legacy {
				rows = append(rows, map[string]interface{}{
					"document_id": c.DocumentID,
					"chunk_index": c.ChunkIndex,
					"content":     c.Content,
					"metadata":    c.Metadata,
					"ctime":       c.Ctime,
				})
			}
			sqlStr, args, err := builder.BuildInsert("document_chunks_legacy", rows)
			if err != nil {
				return err
			}
			sqlStr, args = dbutil.Finalize(sqlStr, args)
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, docID string) ([]model.DocumentChunk, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "level asc, chunk_index asc",
	}
	sqlStr, args, err := builder.BuildSelect("document_chunks", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chunks := make([]model.DocumentChunk, 0)
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.DocumentID, &c.ChunkLabel, &c.Content, &c.ChunkIndex, &c.Level, &c.StartChar, &c.EndChar, &c.ParentLabel, &c.OverlapStart, &c.OverlapEnd, &c.SentenceBoundaries, &c.Metadata, &c.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) ListByDocumentLevel(ctx context.Context, docID string, level int) ([]model.DocumentChunk, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"level":       level,
		"_orderby":    "chunk_index asc",
	}
	sqlStr, args, err := builder.BuildSelect("document_chunks", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chunks := make([]model.DocumentChunk, 0)
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.DocumentID, &c.ChunkLabel, &c.Content, &c.ChunkIndex, &c.Level, &c.StartChar, &c.EndChar, &c.ParentLabel, &c.OverlapStart, &c.OverlapEnd, &c.SentenceBoundaries, &c.Metadata, &c.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) GetByLabel(ctx context.Context, docID string, label string) (*model.DocumentChunk, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"chunk_label": label,
	}
	sqlStr, args, err := builder.BuildSelect("document_chunks", where, chunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var c model.DocumentChunk
	if err := rows.Scan(&c.DocumentID, &c.ChunkLabel, &c.Content, &c.ChunkIndex, &c.Level, &c.StartChar, &c.EndChar, &c.ParentLabel, &c.OverlapStart, &c.OverlapEnd, &c.SentenceBoundaries, &c.Metadata, &c.Ctime); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChunkRepo) ListByLabels(ctx context.Context, docID string, labels []string) ([]model.DocumentChunk, error) {
	if len(labels) == 0 {
		return []model.DocumentChunk{}, nil
	}
	query := `SELECT document_id, chunk_label, content, chunk_index, level, start_char, end_char, parent_label, overlap_start, overlap_end, sentence_boundaries, metadata, ctime FROM document_chunks WHERE document_id = ? AND chunk_label IN (?)`
	query, args, err := sqlx.In(query, docID, labels)
	if err != nil {
		return nil, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chunks := make([]model.DocumentChunk, 0)
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.DocumentID, &c.ChunkLabel, &c.Content, &c.ChunkIndex, &c.Level, &c.StartChar, &c.EndChar, &c.ParentLabel, &c.OverlapStart, &c.OverlapEnd, &c.SentenceBoundaries, &c.Metadata, &c.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) ListLegacyByDocument(ctx context.Context, docID string) ([]model.DocumentChunkLegacy, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "chunk_index asc",
	}
	sqlStr, args, err := builder.BuildSelect("document_chunks_legacy", where, legacyChunkColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	chunks := make([]model.DocumentChunkLegacy, 0)
	for rows.Next() {
		var c model.DocumentChunkLegacy
		if err := rows.Scan(&c.DocumentID, &c.ChunkIndex, &c.Content, &c.Metadata, &c.Ctime); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, docID string) error {
	return dbutil.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"document_chunks", "document_chunks_legacy"} {
			sqlStr, args, err := builder.BuildDelete(table, map[string]interface{}{"document_id": docID})
			if err != nil {
				return err
			}
			sqlStr, args = dbutil.Finalize(sqlStr, args)
			if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ChunkRepo) CountByDocument(ctx context.Context, docID string) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(1) FROM document_chunks WHERE document_id = ?", []interface{}{docID})
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
