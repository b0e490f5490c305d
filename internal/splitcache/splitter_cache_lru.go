package splitcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
)

func WrapLruCacheToSplitter(s chunking.SentenceSplitter, size int, ttl time.Duration) chunking.SentenceSplitter {
	if s == nil || size <= 0 || ttl <= 0 {
		return s
	}
	return &lruSplitter{
		next:  s,
		cache: expirable.NewLRU[string, []chunking.Span](size, nil, ttl),
	}
}

type lruSplitter struct {
	next  chunking.SentenceSplitter
	cache *expirable.LRU[string, []chunking.Span]
}

func (l *lruSplitter) Split(text string) []chunking.Span {
	if l == nil || l.next == nil {
		return nil
	}
	cacheKey, _ := buildCacheKey(text)
	if cached, ok := l.cache.Get(cacheKey); ok {
		logutil.GetLogger(context.Background()).Debug("sentence split cache hit (lru)", zap.Int("text_length", len(text)))
		return cloneSpans(cached)
	}
	res := l.next.Split(text)
	l.cache.Add(cacheKey, cloneSpans(res))
	return res
}

func cloneSpans(spans []chunking.Span) []chunking.Span {
	if len(spans) == 0 {
		return nil
	}
	clone := make([]chunking.Span, len(spans))
	copy(clone, spans)
	return clone
}
