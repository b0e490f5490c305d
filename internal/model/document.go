package model

type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	ContentHash string `json:"content_hash"`
	CharCount   int    `json:"char_count"`
	ChunkCount  int    `json:"chunk_count"`
	Strategy    string `json:"strategy"`
	ArchiveKey  string `json:"archive_key"`
	Ctime       int64  `json:"ctime"`
	Mtime       int64  `json:"mtime"`
}
