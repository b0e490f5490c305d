package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/timeutil"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
	"github.com/cmejo/AI-Scholar-sub014/test/testutil"
)

func TestSentenceCacheRepoRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewSentenceCacheRepo(db)
	hash := newTestID()

	_, ok, err := cache.Get(context.Background(), "heuristic", hash)
	require.NoError(t, err)
	require.False(t, ok)

	spans := []chunking.Span{{Start: 0, End: 12}, {Start: 13, End: 30}}
	require.NoError(t, cache.Save(context.Background(), &model.SentenceCache{
		Splitter:    "heuristic",
		ContentHash: hash,
		Spans:       spans,
		Ctime:       timeutil.NowUnix(),
	}))

	got, ok, err := cache.Get(context.Background(), "heuristic", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, spans, got)

	_, ok, err = cache.Get(context.Background(), "other", hash)
	require.NoError(t, err)
	require.False(t, ok)

	updated := []chunking.Span{{Start: 0, End: 30}}
	require.NoError(t, cache.Save(context.Background(), &model.SentenceCache{
		Splitter:    "heuristic",
		ContentHash: hash,
		Spans:       updated,
		Ctime:       timeutil.NowUnix(),
	}))

	got, ok, err = cache.Get(context.Background(), "heuristic", hash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, updated, got)

	deleted, err := cache.DeleteBefore(context.Background(), timeutil.NowUnix()+1)
	require.NoError(t, err)
	require.GreaterOrEqual(t, deleted, int64(1))

	_, ok, err = cache.Get(context.Background(), "heuristic", hash)
	require.NoError(t, err)
	require.False(t, ok)
}
