// Package synth sequences a synthesis request: quota reservation, upstream
// call with credential failover, container encoding, commit, persistence.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voxgate/internal/errs"
	"voxgate/internal/quota"
	"voxgate/internal/store"
	"voxgate/internal/tts"
	"voxgate/internal/wav"
)

// Ledger is the quota authority the orchestrator defers to.
type Ledger interface {
	CheckAndReserve(principalID string, requestedChars int64) error
	Commit(principalID string, actualChars int64)
	Release(principalID string, chars int64)
	Snapshot(principalID string) (quota.Snapshot, error)
}

// Rotator owns the upstream credential pool.
type Rotator interface {
	Current() string
	Rotate()
	Size() int
}

// ArtifactStore persists generation artifacts.
type ArtifactStore interface {
	SaveArtifact(a *store.Artifact) error
	GetArtifact(id string) (*store.Artifact, error)
	DeleteArtifact(id string) error
}

// Request is one logical synthesis request.
type Request struct {
	PrincipalID string
	Text        string
	Voice       string // provider voice name, already resolved
	Expression  float64
	Pitch       float64
	Speed       float64
	// DeclaredChars is the caller-declared billing length. Zero falls back
	// to the rune count of Text.
	DeclaredChars int64
}

// Result is a successful synthesis outcome.
type Result struct {
	ArtifactID string
	Audio      []byte // WAV container bytes
	Usage      quota.Snapshot
}

// Orchestrator runs the per-request state machine. Instances are safe for
// concurrent use; all shared state lives behind the ledger and rotator.
type Orchestrator struct {
	ledger    Ledger
	pool      Rotator
	newClient tts.Factory
	store     ArtifactStore
	previewID string
	log       *zap.Logger
	now       func() time.Time
}

// NewOrchestrator wires the pipeline. All collaborators are required.
func NewOrchestrator(ledger Ledger, pool Rotator, factory tts.Factory, st ArtifactStore, previewID string, log *zap.Logger) (*Orchestrator, error) {
	if ledger == nil || pool == nil || factory == nil || st == nil {
		return nil, errors.New("orchestrator: missing collaborator")
	}
	return &Orchestrator{
		ledger:    ledger,
		pool:      pool,
		newClient: factory,
		store:     st,
		previewID: previewID,
		log:       log,
		now:       time.Now,
	}, nil
}

// Generate runs one request through the pipeline. The quota commit is the
// last metering step: a request that fails anywhere earlier leaves no
// partial usage behind.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	chars := req.DeclaredChars
	if chars <= 0 {
		chars = int64(utf8.RuneCountInString(req.Text))
	}

	if err := o.ledger.CheckAndReserve(req.PrincipalID, chars); err != nil {
		return nil, err
	}

	pcm, err := o.synthesizeWithFailover(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: upstream returned zero PCM bytes", errs.ErrEncodingFailure)
	}

	audio := wav.Encode(pcm)

	o.ledger.Commit(req.PrincipalID, chars)

	var artifactID string
	if req.PrincipalID != o.previewID {
		artifactID = uuid.NewString()
		artifact := &store.Artifact{
			ID:          artifactID,
			PrincipalID: req.PrincipalID,
			Text:        req.Text,
			Voice:       req.Voice,
			Expression:  req.Expression,
			Pitch:       req.Pitch,
			Speed:       req.Speed,
			CharCount:   chars,
			Audio:       audio,
			CreatedAt:   o.now(),
		}
		if err := o.store.SaveArtifact(artifact); err != nil {
			// The caller already received billable audio; losing the
			// artifact row is an inconsistency, not a request failure.
			o.log.Warn("artifact not persisted",
				zap.String("artifact", artifactID),
				zap.String("principal", req.PrincipalID),
				zap.Error(err))
		}
	}

	snap, err := o.ledger.Snapshot(req.PrincipalID)
	if err != nil {
		return nil, err
	}

	return &Result{ArtifactID: artifactID, Audio: audio, Usage: snap}, nil
}

// synthesizeWithFailover tries the pool in order, one attempt per
// credential, rotating only on the rate-limit classification. Any other
// upstream error aborts immediately. Termination after Size() attempts is
// guaranteed even when the whole pool is exhausted.
func (o *Orchestrator) synthesizeWithFailover(ctx context.Context, req Request) ([]byte, error) {
	upstream := tts.Request{
		Text:       req.Text,
		Voice:      req.Voice,
		Expression: req.Expression,
		Pitch:      req.Pitch,
		Speed:      req.Speed,
	}

	attempts := o.pool.Size()
	for i := 0; i < attempts; i++ {
		// Client is bound to the credential for exactly one attempt; once
		// rotated away, the key must not be reused within this request.
		client := o.newClient(o.pool.Current())

		pcm, err := client.Synthesize(ctx, upstream)
		if err == nil {
			return pcm, nil
		}
		if !errors.Is(err, errs.ErrRateLimited) {
			return nil, err
		}

		o.log.Warn("upstream rate limited, rotating credential",
			zap.Int("attempt", i+1),
			zap.Int("pool_size", attempts))
		o.pool.Rotate()
	}

	return nil, fmt.Errorf("%w: %d credentials tried", errs.ErrUpstreamExhausted, attempts)
}

// DeleteArtifact removes an artifact owned by the caller and reverses its
// exact character contribution from both usage counters.
func (o *Orchestrator) DeleteArtifact(artifactID, principalID string) (quota.Snapshot, error) {
	artifact, err := o.store.GetArtifact(artifactID)
	if err != nil {
		return quota.Snapshot{}, err
	}
	if artifact.PrincipalID != principalID {
		return quota.Snapshot{}, errs.ErrUnauthorized
	}

	if err := o.store.DeleteArtifact(artifactID); err != nil {
		return quota.Snapshot{}, err
	}
	o.ledger.Release(principalID, artifact.CharCount)

	return o.ledger.Snapshot(principalID)
}
