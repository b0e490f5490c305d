package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/model"
)

type SentenceCacheRepo struct {
	db *sql.DB
}

func NewSentenceCacheRepo(db *sql.DB) *SentenceCacheRepo {
	return &SentenceCacheRepo{db: db}
}

func (r *SentenceCacheRepo) Get(ctx context.Context, splitter, contentHash string) ([]chunking.Span, bool, error) {
	const query = `
		SELECT spans
		FROM sentence_cache
		WHERE splitter = $1 AND content_hash = $2
	`
	row := r.db.QueryRowContext(ctx, query, splitter, contentHash)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	var spans []chunking.Span
	if err := json.Unmarshal(blob, &spans); err != nil {
		return nil, false, err
	}
	return spans, true, nil
}

func (r *SentenceCacheRepo) Save(ctx context.Context, item *model.SentenceCache) error {
	blob, err := json.Marshal(item.Spans)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO sentence_cache (splitter, content_hash, spans, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (splitter, content_hash) DO UPDATE SET
			spans = EXCLUDED.spans,
			ctime = EXCLUDED.ctime
	`
	_, err = r.db.ExecContext(ctx, query,
		item.Splitter,
		item.ContentHash,
		blob,
		item.Ctime,
	)
	return err
}

func (r *SentenceCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	const query = `DELETE FROM sentence_cache WHERE ctime < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
