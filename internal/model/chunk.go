package model

// DocumentChunk is the enhanced storage row: full offsets, hierarchy link,
// overlap annotations and serialized metadata. SentenceBoundaries and
// Metadata carry JSON.
type DocumentChunk struct {
	DocumentID         string `json:"document_id"`
	ChunkLabel         string `json:"chunk_label"`
	Content            string `json:"content"`
	ChunkIndex         int    `json:"chunk_index"`
	Level              int    `json:"level"`
	StartChar          *int   `json:"start_char,omitempty"`
	EndChar            *int   `json:"end_char,omitempty"`
	ParentLabel        string `json:"parent_label"`
	OverlapStart       *int   `json:"overlap_start,omitempty"`
	OverlapEnd         *int   `json:"overlap_end,omitempty"`
	SentenceBoundaries string `json:"sentence_boundaries"`
	Metadata           string `json:"metadata"`
	Ctime              int64  `json:"ctime"`
}

// DocumentChunkLegacy is the flat back-compat row older readers consume: one
// row per base chunk in document order, everything beyond the content packed
// into a metadata JSON blob.
type DocumentChunkLegacy struct {
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Metadata   string `json:"metadata"`
	Ctime      int64  `json:"ctime"`
}
