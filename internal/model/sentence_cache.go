package model

import "github.com/cmejo/AI-Scholar-sub014/internal/chunking"

type SentenceCache struct {
	Splitter    string          `json:"splitter"`
	ContentHash string          `json:"content_hash"`
	Spans       []chunking.Span `json:"spans"`
	Ctime       int64           `json:"ctime"`
}
