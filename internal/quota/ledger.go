// Package quota is the sole authority on whether a synthesis request may
// proceed and on recording its cost.
package quota

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"voxgate/internal/errs"
	"voxgate/internal/store"
)

// ProfileStore is the durable side of the ledger: tier and lifetime
// counter live there, daily counters only in memory.
type ProfileStore interface {
	GetOrCreateProfile(principalID, defaultTier string) (*store.Profile, error)
	UpdateLifetimeChars(principalID string, chars int64) error
}

// record is one principal's usage state. Its mutex serializes all counter
// mutations for that principal; no lock spans principals.
type record struct {
	mu           sync.Mutex
	tier         string
	dailyUsed    int64
	dailyResetAt time.Time
	lifetime     int64
}

// Snapshot is the usage view returned alongside synthesis responses.
type Snapshot struct {
	DailyCharsUsed int64     `json:"daily_chars_used"`
	DailyLimit     int64     `json:"daily_limit"`
	DailyResetAt   time.Time `json:"daily_reset_at"`
	LifetimeChars  int64     `json:"lifetime_chars_used"`
	Tier           string    `json:"tier"`
}

// Ledger tracks per-principal daily and lifetime character usage. Daily
// counters reset at midnight in a single fixed reference timezone.
type Ledger struct {
	mu      sync.Mutex
	records map[string]*record

	store     ProfileStore
	loc       *time.Location
	previewID string
	log       *zap.Logger
	now       func() time.Time
}

// NewLedger creates a ledger resetting daily usage at midnight in the
// given IANA zone. An unknown zone name is a startup failure.
func NewLedger(st ProfileStore, zone, previewID string, log *zap.Logger) (*Ledger, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("load quota timezone %q: %w", zone, err)
	}
	return &Ledger{
		records:   make(map[string]*record),
		store:     st,
		loc:       loc,
		previewID: previewID,
		log:       log,
		now:       time.Now,
	}, nil
}

// CheckAndReserve accepts iff the principal's rolled-over daily usage plus
// requestedChars fits under the tier ceiling. Optimistic: nothing is
// ticked until Commit.
func (l *Ledger) CheckAndReserve(principalID string, requestedChars int64) error {
	if principalID == l.previewID {
		return nil
	}

	rec, err := l.record(principalID)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	l.rolloverLocked(rec)

	if rec.dailyUsed+requestedChars > Ceiling(rec.tier) {
		return errs.ErrQuotaExceeded
	}
	return nil
}

// Commit records actualChars against both counters and persists the
// lifetime figure. Called only after the upstream call and container
// encoding succeed. A store write failure is logged, never rolled back:
// the caller already received billable service.
func (l *Ledger) Commit(principalID string, actualChars int64) {
	if principalID == l.previewID || actualChars <= 0 {
		return
	}

	rec, err := l.record(principalID)
	if err != nil {
		l.log.Warn("quota commit skipped: profile load failed",
			zap.String("principal", principalID), zap.Error(err))
		return
	}

	rec.mu.Lock()
	l.rolloverLocked(rec)
	rec.dailyUsed += actualChars
	rec.lifetime += actualChars
	lifetime := rec.lifetime
	rec.mu.Unlock()

	if err := l.store.UpdateLifetimeChars(principalID, lifetime); err != nil {
		l.log.Warn("lifetime usage not persisted, in-memory value stays authoritative",
			zap.String("principal", principalID), zap.Error(err))
	}
}

// Release reverses an artifact's character contribution on deletion,
// flooring both counters at zero.
func (l *Ledger) Release(principalID string, chars int64) {
	if principalID == l.previewID || chars <= 0 {
		return
	}

	rec, err := l.record(principalID)
	if err != nil {
		l.log.Warn("quota release skipped: profile load failed",
			zap.String("principal", principalID), zap.Error(err))
		return
	}

	rec.mu.Lock()
	l.rolloverLocked(rec)
	rec.dailyUsed -= chars
	if rec.dailyUsed < 0 {
		rec.dailyUsed = 0
	}
	rec.lifetime -= chars
	if rec.lifetime < 0 {
		rec.lifetime = 0
	}
	lifetime := rec.lifetime
	rec.mu.Unlock()

	if err := l.store.UpdateLifetimeChars(principalID, lifetime); err != nil {
		l.log.Warn("lifetime usage not persisted after release",
			zap.String("principal", principalID), zap.Error(err))
	}
}

// Snapshot returns the principal's current usage view, rolling the day
// over first. The preview principal always reports the free ceiling with
// zero usage.
func (l *Ledger) Snapshot(principalID string) (Snapshot, error) {
	if principalID == l.previewID {
		return Snapshot{
			DailyLimit:   Ceiling(TierFree),
			DailyResetAt: l.startOfDay(l.now()),
			Tier:         TierFree,
		}, nil
	}

	rec, err := l.record(principalID)
	if err != nil {
		return Snapshot{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	l.rolloverLocked(rec)

	return Snapshot{
		DailyCharsUsed: rec.dailyUsed,
		DailyLimit:     Ceiling(rec.tier),
		DailyResetAt:   rec.dailyResetAt,
		LifetimeChars:  rec.lifetime,
		Tier:           rec.tier,
	}, nil
}

// record returns the in-memory record for a principal, loading the
// profile lazily on first reference. The registry lock is not held
// during the store read.
func (l *Ledger) record(principalID string) (*record, error) {
	l.mu.Lock()
	if rec, ok := l.records[principalID]; ok {
		l.mu.Unlock()
		return rec, nil
	}
	l.mu.Unlock()

	profile, err := l.store.GetOrCreateProfile(principalID, TierFree)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[principalID]; ok {
		// Another request loaded it first.
		return rec, nil
	}
	rec := &record{
		tier:         profile.Tier,
		dailyResetAt: l.startOfDay(l.now()),
		lifetime:     profile.LifetimeChars,
	}
	l.records[principalID] = rec
	return rec, nil
}

// rolloverLocked resets the daily counter when the reference-zone calendar
// date has changed since dailyResetAt. Dates are compared by components,
// not elapsed time, so DST transitions never shift the boundary.
// Caller holds rec.mu.
func (l *Ledger) rolloverLocked(rec *record) {
	now := l.now().In(l.loc)
	y1, m1, d1 := rec.dailyResetAt.In(l.loc).Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return
	}
	rec.dailyUsed = 0
	rec.dailyResetAt = time.Date(y2, m2, d2, 0, 0, 0, 0, l.loc)
}

func (l *Ledger) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(l.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.loc)
}
