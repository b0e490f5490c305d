package handler_test

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/cmejo/AI-Scholar-sub014/internal/chunking"
	"github.com/cmejo/AI-Scholar-sub014/internal/config"
	"github.com/cmejo/AI-Scholar-sub014/internal/filestore"
	"github.com/cmejo/AI-Scholar-sub014/internal/handler"
	"github.com/cmejo/AI-Scholar-sub014/internal/middleware"
	"github.com/cmejo/AI-Scholar-sub014/internal/pkg/apikey"
	"github.com/cmejo/AI-Scholar-sub014/internal/repo"
	"github.com/cmejo/AI-Scholar-sub014/internal/service"
	"github.com/cmejo/AI-Scholar-sub014/internal/splitcache"
	"github.com/cmejo/AI-Scholar-sub014/test/testutil"
)

const (
	testAPIKey      = "test-api-key"
	testTokenSecret = "test-token-secret"
)

type envelope struct {
	Code int                    `json:"code"`
	Msg  string                 `json:"msg"`
	Data map[string]interface{} `json:"data"`
}

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setupRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	docRepo := repo.NewDocumentRepo(db)
	chunkRepo := repo.NewChunkRepo(db)
	runRepo := repo.NewIngestRunRepo(db)
	cacheRepo := repo.NewSentenceCacheRepo(db)

	splitter := splitcache.WrapDBCacheToSplitter(chunking.NewHeuristicSplitter(), "heuristic", cacheRepo)
	splitter = splitcache.WrapLruCacheToSplitter(splitter, 64, time.Minute)
	chunkingSvc := service.NewChunkingService(config.DefaultChunking(), splitter)

	tmpDir, err := os.MkdirTemp("", "scholar-test-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": tmpDir},
	})
	require.NoError(t, err)

	ingestSvc := service.NewIngestService(docRepo, chunkRepo, runRepo, chunkingSvc, store)

	hash, err := apikey.Hash(testAPIKey)
	require.NoError(t, err)
	authSvc := service.NewAuthService(hash, []byte(testTokenSecret), time.Hour)

	deps := handler.RouterDeps{
		Auth:        handler.NewAuthHandler(authSvc),
		Documents:   handler.NewDocumentHandler(ingestSvc),
		Chunking:    handler.NewChunkingHandler(chunkingSvc),
		TokenSecret: []byte(testTokenSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, token, body string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var result envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return result
}

func fetchToken(t *testing.T, router http.Handler) string {
	t.Helper()
	result := doJSON(t, router, http.MethodPost, "/api/v1/auth/token", "", `{"api_key":"test-api-key","subject":"tester"}`)
	require.Equal(t, 0, result.Code)
	token, _ := result.Data["token"].(string)
	require.NotEmpty(t, token)
	return token
}
