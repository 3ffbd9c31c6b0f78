// Package api exposes the synthesis gateway over HTTP.
package api

import (
	"encoding/base64"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voxgate/internal/errs"
	"voxgate/internal/quota"
	"voxgate/internal/store"
	"voxgate/internal/synth"
	"voxgate/internal/voice"
)

// Handler handles gateway API requests
type Handler struct {
	orch   *synth.Orchestrator
	ledger *quota.Ledger
	store  *store.Storage
	voices *voice.Router
	log    *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(orch *synth.Orchestrator, ledger *quota.Ledger, st *store.Storage, voices *voice.Router, log *zap.Logger) *Handler {
	return &Handler{orch: orch, ledger: ledger, store: st, voices: voices, log: log}
}

type synthesizeRequest struct {
	Text        string  `json:"text" binding:"required"`
	Voice       string  `json:"voice"`
	Expression  float64 `json:"expression"`
	Pitch       float64 `json:"pitch"`
	Speed       float64 `json:"speed"`
	PrincipalID string  `json:"principal_id" binding:"required"`
	CharLength  int64   `json:"char_length"`
}

type synthesizeResponse struct {
	ArtifactID string `json:"artifact_id,omitempty"`
	Audio      string `json:"audio"` // base64 WAV
	usageFields
}

type usageFields struct {
	DailyCharsUsed int64  `json:"daily_chars_used"`
	DailyLimit     int64  `json:"daily_limit"`
	DailyResetAt   string `json:"daily_reset_at"`
	LifetimeChars  int64  `json:"lifetime_chars_used"`
	Tier           string `json:"tier"`
}

func usageOf(s quota.Snapshot) usageFields {
	return usageFields{
		DailyCharsUsed: s.DailyCharsUsed,
		DailyLimit:     s.DailyLimit,
		DailyResetAt:   s.DailyResetAt.Format("2006-01-02T15:04:05.000Z07:00"),
		LifetimeChars:  s.LifetimeChars,
		Tier:           s.Tier,
	}
}

// Synthesize handles POST /v1/synthesize
func (h *Handler) Synthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": gin.H{"message": err.Error(), "type": "invalid_request_error"}})
		return
	}

	result, err := h.orch.Generate(c.Request.Context(), synth.Request{
		PrincipalID:   req.PrincipalID,
		Text:          req.Text,
		Voice:         h.voices.Resolve(req.Voice),
		Expression:    req.Expression,
		Pitch:         req.Pitch,
		Speed:         req.Speed,
		DeclaredChars: req.CharLength,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(200, synthesizeResponse{
		ArtifactID:  result.ArtifactID,
		Audio:       base64.StdEncoding.EncodeToString(result.Audio),
		usageFields: usageOf(result.Usage),
	})
}

type deleteRequest struct {
	PrincipalID string `json:"principal_id" binding:"required"`
}

// DeleteArtifact handles DELETE /v1/artifacts/:id
func (h *Handler) DeleteArtifact(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": gin.H{"message": err.Error(), "type": "invalid_request_error"}})
		return
	}

	snap, err := h.orch.DeleteArtifact(c.Param("id"), req.PrincipalID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(200, usageOf(snap))
}

// ListArtifacts handles GET /v1/artifacts?principal_id=
func (h *Handler) ListArtifacts(c *gin.Context) {
	principalID := c.Query("principal_id")
	if principalID == "" {
		c.JSON(400, gin.H{"error": gin.H{"message": "principal_id is required", "type": "invalid_request_error"}})
		return
	}

	artifacts, err := h.store.ListArtifacts(principalID)
	if err != nil {
		c.JSON(500, gin.H{"error": gin.H{"message": err.Error(), "type": "storage_error"}})
		return
	}
	if artifacts == nil {
		artifacts = []store.Artifact{}
	}

	c.JSON(200, gin.H{"artifacts": artifacts})
}

// GetUsage handles GET /v1/usage/:principal_id
func (h *Handler) GetUsage(c *gin.Context) {
	snap, err := h.ledger.Snapshot(c.Param("principal_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(200, usageOf(snap))
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// writeError maps the error taxonomy onto distinguishable statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrQuotaExceeded):
		c.JSON(429, gin.H{"error": gin.H{"message": "daily character quota exceeded", "type": "quota_exceeded"}})
	case errors.Is(err, errs.ErrUpstreamExhausted):
		c.JSON(503, gin.H{"error": gin.H{"message": "all synthesis credentials are rate limited, try again later", "type": "upstream_exhausted"}})
	case errors.Is(err, errs.ErrEncodingFailure):
		c.JSON(500, gin.H{"error": gin.H{"message": "synthesis produced no playable audio", "type": "encoding_failure"}})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(404, gin.H{"error": gin.H{"message": "artifact not found", "type": "not_found"}})
	case errors.Is(err, errs.ErrUnauthorized):
		c.JSON(403, gin.H{"error": gin.H{"message": "artifact belongs to another principal", "type": "unauthorized"}})
	default:
		h.log.Error("synthesis failed", zap.Error(err))
		c.JSON(502, gin.H{"error": gin.H{"message": err.Error(), "type": "upstream_error"}})
	}
}
