package handler

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cmejo/AI-Scholar-sub014/internal/model"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/errcode"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/response"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
)

type DocumentHandler struct {
	ingest *service.IngestService
}

func NewDocumentHandler(ingest *service.IngestService) *DocumentHandler {
	return &DocumentHandler{ingest: ingest}
}

type ingestRequest struct {
	DocumentID  string `json:"document_id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	Strategy    string `json:"strategy"`
	Source      string `json:"source"`
}

// chunkView mirrors a stored chunk row with the serialized columns exposed
// as raw JSON instead of double-encoded strings.
type chunkView struct {
	ChunkID            string          `json:"chunk_id"`
	Content            string          `json:"content"`
	ChunkIndex         int             `json:"chunk_index"`
	ChunkLevel         int             `json:"chunk_level"`
	StartChar          *int            `json:"start_char,omitempty"`
	EndChar            *int            `json:"end_char,omitempty"`
	ParentChunkID      string          `json:"parent_chunk_id,omitempty"`
	OverlapStart       *int            `json:"overlap_start,omitempty"`
	OverlapEnd         *int            `json:"overlap_end,omitempty"`
	SentenceBoundaries json.RawMessage `json:"sentence_boundaries,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
}

type legacyChunkView struct {
	ChunkIndex int             `json:"chunk_index"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

func toChunkView(ch model.DocumentChunk) chunkView {
	return chunkView{
		ChunkID:            ch.ChunkLabel,
		Content:            ch.Content,
		ChunkIndex:         ch.ChunkIndex,
		ChunkLevel:         ch.Level,
		StartChar:          ch.StartChar,
		EndChar:            ch.EndChar,
		ParentChunkID:      ch.ParentLabel,
		OverlapStart:       ch.OverlapStart,
		OverlapEnd:         ch.OverlapEnd,
		SentenceBoundaries: rawJSON(ch.SentenceBoundaries),
		Metadata:           rawJSON(ch.Metadata),
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return nil
	}
	return json.RawMessage(s)
}

func (h *DocumentHandler) Create(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Title == "" {
		response.Error(c, errcode.ErrInvalid, "title required")
		return
	}
	result, err := h.ingest.Ingest(c.Request.Context(), service.IngestInput{
		DocumentID:  req.DocumentID,
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
		Strategy:    req.Strategy,
		Source:      req.Source,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := parseUintQuery(c, "limit")
	offset := parseUintQuery(c, "offset")
	docs, err := h.ingest.ListDocuments(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, err)
		return
	}
	total, err := h.ingest.CountDocuments(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"documents": docs, "total": total})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.ingest.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	docID := c.Param("id")
	if c.Query("view") == "legacy" {
		rows, err := h.ingest.LegacyChunks(c.Request.Context(), docID)
		if err != nil {
			handleError(c, err)
			return
		}
		views := make([]legacyChunkView, 0, len(rows))
		for _, row := range rows {
			views = append(views, legacyChunkView{
				ChunkIndex: row.ChunkIndex,
				Content:    row.Content,
				Metadata:   rawJSON(row.Metadata),
			})
		}
		response.Success(c, gin.H{"document_id": docID, "chunks": views})
		return
	}
	var level *int
	if value := c.Query("level"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			response.Error(c, errcode.ErrInvalid, "invalid level")
			return
		}
		level = &parsed
	}
	rows, err := h.ingest.DocumentChunks(c.Request.Context(), docID, level)
	if err != nil {
		handleError(c, err)
		return
	}
	views := make([]chunkView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toChunkView(row))
	}
	response.Success(c, gin.H{"document_id": docID, "chunks": views})
}

func (h *DocumentHandler) Runs(c *gin.Context) {
	limit := parseUintQuery(c, "limit")
	runs, err := h.ingest.ListRuns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"runs": runs})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.ingest.DeleteDocument(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func parseUintQuery(c *gin.Context, name string) uint {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0
	}
	return uint(parsed)
}
