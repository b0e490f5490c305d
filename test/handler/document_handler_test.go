package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/errcode"
)

func ingestBody(docID, strategy string) string {
	content := strings.Repeat(
		"Scholars upload long manuscripts for indexing. The service slices each one into retrievable chunks. "+
			"Overlap between neighbours preserves context at the seams. Parents summarise runs of adjacent children. ",
		12,
	)
	payload := map[string]string{
		"document_id": docID,
		"title":       "Manuscript",
		"content":     content,
		"strategy":    strategy,
		"source":      "api",
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestDocumentEndpointsFlow(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := fetchToken(t, router)

	docID := "manuscript-" + newTestID()
	result := doJSON(t, router, http.MethodPost, "/api/v1/documents", token, ingestBody(docID, "hierarchical"))
	require.Equal(t, 0, result.Code)
	require.Equal(t, docID, result.Data["document_id"])
	chunkCount, _ := result.Data["chunk_count"].(float64)
	require.Greater(t, chunkCount, float64(1))

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents?limit=10", token, "")
	require.Equal(t, 0, result.Code)
	total, _ := result.Data["total"].(float64)
	require.GreaterOrEqual(t, total, float64(1))

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID, token, "")
	require.Equal(t, 0, result.Code)
	require.Equal(t, "Manuscript", result.Data["title"])

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID+"/chunks", token, "")
	require.Equal(t, 0, result.Code)
	chunks, _ := result.Data["chunks"].([]interface{})
	require.Len(t, chunks, int(chunkCount))
	first, _ := chunks[0].(map[string]interface{})
	require.NotEmpty(t, first["chunk_id"])

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID+"/chunks?level=0", token, "")
	require.Equal(t, 0, result.Code)
	leaves, _ := result.Data["chunks"].([]interface{})
	require.NotEmpty(t, leaves)
	require.Less(t, len(leaves), len(chunks))
	for _, raw := range leaves {
		chunk, _ := raw.(map[string]interface{})
		level, _ := chunk["chunk_level"].(float64)
		require.Equal(t, float64(0), level)
	}

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID+"/chunks?view=legacy", token, "")
	require.Equal(t, 0, result.Code)
	legacy, _ := result.Data["chunks"].([]interface{})
	require.Len(t, legacy, len(leaves))

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID+"/runs", token, "")
	require.Equal(t, 0, result.Code)
	runs, _ := result.Data["runs"].([]interface{})
	require.Len(t, runs, 1)

	result = doJSON(t, router, http.MethodDelete, "/api/v1/documents/"+docID, token, "")
	require.Equal(t, 0, result.Code)

	result = doJSON(t, router, http.MethodGet, "/api/v1/documents/"+docID, token, "")
	require.Equal(t, errcode.ErrNotFound, result.Code)
}

func TestDocumentIngestValidation(t *testing.T) {
	router, cleanup := setupRouter(t)
	defer cleanup()
	token := fetchToken(t, router)

	result := doJSON(t, router, http.MethodPost, "/api/v1/documents", token, `{"content":"body without title"}`)
	require.Equal(t, errcode.ErrInvalid, result.Code)

	result = doJSON(t, router, http.MethodPost, "/api/v1/documents", token, `{"title":"Empty","content":"   "}`)
	require.Equal(t, errcode.ErrEmptyDocument, result.Code)

	badID := "manuscript-" + newTestID()
	result = doJSON(t, router, http.MethodPost, "/api/v1/documents", token, ingestBody(badID, "bogus"))
	require.Equal(t, errcode.ErrUnknownStrategy, result.Code)

	result = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/documents/%s/chunks?level=x", badID), token, "")
	require.Equal(t, errcode.ErrInvalid, result.Code)
}
