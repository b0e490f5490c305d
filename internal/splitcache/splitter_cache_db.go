package splitcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
)

// dbCacheTimeout bounds cache lookups because SentenceSplitter.Split carries
// no context of its own.
const dbCacheTimeout = 3 * time.Second

func WrapDBCacheToSplitter(s chunking.SentenceSplitter, name string, cacheRepo *repo.SentenceCacheRepo) chunking.SentenceSplitter {
	if s == nil || cacheRepo == nil {
		return s
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "unknown"
	}
	return &dbSplitter{next: s, name: name, repo: cacheRepo}
}

type dbSplitter struct {
	next chunking.SentenceSplitter
	name string
	repo *repo.SentenceCacheRepo
}

func (d *dbSplitter) Split(text string) []chunking.Span {
	if d == nil || d.next == nil {
		return nil
	}
	_, contentHash := buildCacheKey(text)
	ctx, cancel := context.WithTimeout(context.Background(), dbCacheTimeout)
	defer cancel()
	if d.repo != nil {
		spans, ok, err := d.repo.Get(ctx, d.name, contentHash)
		if err != nil {
			logutil.GetLogger(ctx).Warn("failed to read sentence cache", zap.Error(err))
		} else if ok {
			logutil.GetLogger(ctx).Debug("sentence split cache hit (db)", zap.String("splitter", d.name))
			return spans
		}
	}
	res := d.next.Split(text)
	if d.repo != nil {
		if err := d.repo.Save(ctx, &model.SentenceCache{
			Splitter:    d.name,
			ContentHash: contentHash,
			Spans:       res,
			Ctime:       time.Now().Unix(),
		}); err != nil {
			logutil.GetLogger(ctx).Warn("failed to cache sentence spans", zap.Error(err))
		}
	}
	return res
}

func buildCacheKey(text string) (string, string) {
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "split:" + contentHash, contentHash
}
