package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/dbutil"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

var documentColumns = []string{"id", "title", "source", "content_hash", "char_count", "chunk_count", "strategy", "archive_key", "ctime", "mtime"}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":           doc.ID,
		"title":        doc.Title,
		"source":       doc.Source,
		"content_hash": doc.ContentHash,
		"char_count":   doc.CharCount,
		"chunk_count":  doc.ChunkCount,
		"strategy":     doc.Strategy,
		"archive_key":  doc.ArchiveKey,
		"ctime":        doc.Ctime,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Update(ctx context.Context, doc *model.Document) error {
	where := map[string]interface{}{
		"id": doc.ID,
	}
	update := map[string]interface{}{
		"title":        doc.Title,
		"source":       doc.Source,
		"content_hash": doc.ContentHash,
		"char_count":   doc.CharCount,
		"chunk_count":  doc.ChunkCount,
		"strategy":     doc.Strategy,
		"archive_key":  doc.ArchiveKey,
		"mtime":        doc.Mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("documents", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id": docID,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
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
	var doc model.Document
	if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentHash, &doc.CharCount, &doc.ChunkCount, &doc.Strategy, &doc.ArchiveKey, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) GetByContentHash(ctx context.Context, contentHash string) (*model.Document, error) {
	where := map[string]interface{}{
		"content_hash": contentHash,
		"_orderby":     "mtime desc",
		"_limit":       []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
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
	var doc model.Document
	if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentHash, &doc.CharCount, &doc.ChunkCount, &doc.Strategy, &doc.ArchiveKey, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset uint) ([]model.Document, error) {
	where := map[string]interface{}{
		"_orderby": "mtime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, documentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		var doc model.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.ContentHash, &doc.CharCount, &doc.ChunkCount, &doc.Strategy, &doc.ArchiveKey, &doc.Ctime, &doc.Mtime); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Delete(ctx context.Context, docID string) error {
	sqlStr, args, err := builder.BuildDelete("documents", map[string]interface{}{"id": docID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) Count(ctx context.Context) (int64, error) {
	row := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM documents")
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
