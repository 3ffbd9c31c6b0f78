package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voxgate/config"
	"voxgate/internal/credential"
	"voxgate/internal/errs"
	"voxgate/internal/quota"
	"voxgate/internal/store"
	"voxgate/internal/synth"
	"voxgate/internal/tts"
	"voxgate/internal/voice"
)

type stubSynth struct {
	pcm []byte
	err error
}

func (s *stubSynth) Synthesize(_ context.Context, _ tts.Request) ([]byte, error) {
	return s.pcm, s.err
}

func newTestRouter(t *testing.T, stub *stubSynth) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage, err := store.NewStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	ledger, err := quota.NewLedger(storage, "Asia/Seoul", "preview", zap.NewNop())
	require.NoError(t, err)

	pool, err := credential.NewPool([]string{"k1", "k2"}, zap.NewNop())
	require.NoError(t, err)

	factory := tts.Factory(func(string) tts.Synthesizer { return stub })

	orch, err := synth.NewOrchestrator(ledger, pool, factory, storage, "preview", zap.NewNop())
	require.NoError(t, err)

	h := NewHandler(orch, ledger, storage, voice.NewRouter(config.DefaultConfig()), zap.NewNop())

	r := gin.New()
	r.POST("/v1/synthesize", h.Synthesize)
	r.GET("/v1/artifacts", h.ListArtifacts)
	r.DELETE("/v1/artifacts/:id", h.DeleteArtifact)
	r.GET("/v1/usage/:principal_id", h.GetUsage)
	r.GET("/health", h.Health)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSynthesize_Success(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1, 2, 3, 4}})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "hello", "voice": "narrator", "principal_id": "alice", "char_length": 10,
	})
	require.Equal(t, 200, w.Code, w.Body.String())

	var resp struct {
		ArtifactID     string `json:"artifact_id"`
		Audio          string `json:"audio"`
		DailyCharsUsed int64  `json:"daily_chars_used"`
		DailyLimit     int64  `json:"daily_limit"`
		LifetimeChars  int64  `json:"lifetime_chars_used"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	require.NoError(t, err)
	assert.Len(t, audio, 44+4)
	assert.Equal(t, "RIFF", string(audio[:4]))

	assert.NotEmpty(t, resp.ArtifactID)
	assert.Equal(t, int64(10), resp.DailyCharsUsed)
	assert.Equal(t, int64(700), resp.DailyLimit)
	assert.Equal(t, int64(10), resp.LifetimeChars)
}

func TestSynthesize_MissingTextIs400(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1}})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{"principal_id": "alice"})
	assert.Equal(t, 400, w.Code)
}

func TestSynthesize_QuotaExceededIs429(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1}})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "x", "principal_id": "alice", "char_length": 800,
	})
	require.Equal(t, 429, w.Code)
	assert.Contains(t, w.Body.String(), "quota_exceeded")
}

func TestSynthesize_PoolExhaustedIs503(t *testing.T) {
	r := newTestRouter(t, &stubSynth{err: fmt.Errorf("%w: status 429", errs.ErrRateLimited)})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "x", "principal_id": "alice", "char_length": 5,
	})
	require.Equal(t, 503, w.Code)
	assert.Contains(t, w.Body.String(), "upstream_exhausted")
}

func TestSynthesize_EncodingFailureIs500(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: nil})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "x", "principal_id": "alice", "char_length": 5,
	})
	require.Equal(t, 500, w.Code)
	assert.Contains(t, w.Body.String(), "encoding_failure")
}

func TestDeleteArtifact_OwnershipAndRelease(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1, 2}})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "hello", "principal_id": "alice", "char_length": 25,
	})
	require.Equal(t, 200, w.Code)

	var created struct {
		ArtifactID string `json:"artifact_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, "DELETE", "/v1/artifacts/"+created.ArtifactID, gin.H{"principal_id": "mallory"})
	assert.Equal(t, 403, w.Code)

	w = doJSON(t, r, "DELETE", "/v1/artifacts/"+created.ArtifactID, gin.H{"principal_id": "alice"})
	require.Equal(t, 200, w.Code)

	var usage struct {
		DailyCharsUsed int64 `json:"daily_chars_used"`
		LifetimeChars  int64 `json:"lifetime_chars_used"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &usage))
	assert.Equal(t, int64(0), usage.DailyCharsUsed)
	assert.Equal(t, int64(0), usage.LifetimeChars)

	w = doJSON(t, r, "DELETE", "/v1/artifacts/"+created.ArtifactID, gin.H{"principal_id": "alice"})
	assert.Equal(t, 404, w.Code)
}

func TestListArtifacts(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1}})

	w := doJSON(t, r, "POST", "/v1/synthesize", gin.H{
		"text": "hello", "principal_id": "alice", "char_length": 5,
	})
	require.Equal(t, 200, w.Code)

	req := httptest.NewRequest("GET", "/v1/artifacts?principal_id=alice", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp struct {
		Artifacts []store.Artifact `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, "hello", resp.Artifacts[0].Text)
}

func TestGetUsage_PreviewPrincipal(t *testing.T) {
	r := newTestRouter(t, &stubSynth{pcm: []byte{1}})

	req := httptest.NewRequest("GET", "/v1/usage/preview", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var usage struct {
		DailyCharsUsed int64 `json:"daily_chars_used"`
		DailyLimit     int64 `json:"daily_limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usage))
	assert.Equal(t, int64(0), usage.DailyCharsUsed)
	assert.Equal(t, int64(700), usage.DailyLimit)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &stubSynth{})
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
