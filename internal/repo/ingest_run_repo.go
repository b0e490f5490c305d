package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/dbutil"
	appErr "github.com/cmejo/AI-Scholar-sub014/internal/pkg/errors"
)

const (
	IngestStatusOK     = "ok"
	IngestStatusFailed = "failed"
)

var ingestRunColumns = []string{"id", "document_id", "strategy", "chunk_count", "levels", "text_length", "cost_ms", "status", "error", "ctime"}

type IngestRunRepo struct {
	db *sql.DB
}

func NewIngestRunRepo(db *sql.DB) *IngestRunRepo {
	return &IngestRunRepo{db: db}
}

func (r *IngestRunRepo) Create(ctx context.Context, run *model.IngestRun) error {
	data := map[string]interface{}{
		"id":          run.ID,
		"document_id": run.DocumentID,
		"strategy":    run.Strategy,
		"chunk_count": run.ChunkCount,
		"levels":      run.Levels,
		"text_length": run.TextLength,
		"cost_ms":     run.CostMs,
		"status":      run.Status,
		"error":       run.Error,
		"ctime":       run.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("ingest_runs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *IngestRunRepo) ListByDocument(ctx context.Context, docID string, limit uint) ([]model.IngestRun, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("ingest_runs", where, ingestRunColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	runs := make([]model.IngestRun, 0)
	for rows.Next() {
		var run model.IngestRun
		if err := rows.Scan(&run.ID, &run.DocumentID, &run.Strategy, &run.ChunkCount, &run.Levels, &run.TextLength, &run.CostMs, &run.Status, &run.Error, &run.Ctime); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *IngestRunRepo) LatestByDocument(ctx context.Context, docID string) (*model.IngestRun, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "ctime desc",
		"_limit":      []uint{0, 1},
	}
	sqlStr, args, err := builder.BuildSelect("ingest_runs", where, ingestRunColumns)
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
	var run model.IngestRun
	if err := rows.Scan(&run.ID, &run.DocumentID, &run.Strategy, &run.ChunkCount, &run.Levels, &run.TextLength, &run.CostMs, &run.Status, &run.Error, &run.Ctime); err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *IngestRunRepo) DeleteByDocument(ctx context.Context, docID string) error {
	sqlStr, args, err := builder.BuildDelete("ingest_runs", map[string]interface{}{"document_id": docID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *IngestRunRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM ingest_runs WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
