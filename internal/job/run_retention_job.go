package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
)

type RunRetentionJob struct {
	runs       *repo.IngestRunRepo
	maxAgeDays int
}

func NewRunRetentionJob(runs *repo.IngestRunRepo, maxAgeDays int) *RunRetentionJob {
	return &RunRetentionJob{runs: runs, maxAgeDays: maxAgeDays}
}

func (j *RunRetentionJob) Name() string {
	return "run_retention"
}

func (j *RunRetentionJob) Run(ctx context.Context) error {
	if j.runs == nil {
		return nil
	}
	maxAgeDays := j.maxAgeDays
	if maxAgeDays <= 0 {
		maxAgeDays = 30
	}
	cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).Unix()
	deleted, err := j.runs.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("expired ingest runs removed", zap.Int64("count", deleted))
	}
	return nil
}
