package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
)

type SentenceCacheCleanupJob struct {
	cache      *repo.SentenceCacheRepo
	maxAgeDays int
}

func NewSentenceCacheCleanupJob(cache *repo.SentenceCacheRepo, maxAgeDays int) *SentenceCacheCleanupJob {
	return &SentenceCacheCleanupJob{cache: cache, maxAgeDays: maxAgeDays}
}

func (j *SentenceCacheCleanupJob) Name() string {
	return "sentence_cache_cleanup"
}

func (j *SentenceCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 14
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	deleted, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("expired sentence cache rows removed", zap.Int64("count", deleted))
	}
	return nil
}
