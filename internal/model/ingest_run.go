package model

type IngestRun struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Strategy   string `json:"strategy"`
	ChunkCount int    `json:"chunk_count"`
	Levels     int    `json:"levels"`
	TextLength int    `json:"text_length"`
	CostMs     int64  `json:"cost_ms"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	Ctime      int64  `json:"ctime"`
}
