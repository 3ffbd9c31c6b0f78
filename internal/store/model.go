package store

import "time"

// Profile represents a caller identity's subscription and lifetime usage.
// The lifetime counter's source of truth lives here; daily counters are
// kept in memory by the quota ledger.
type Profile struct {
	PrincipalID   string    `json:"principal_id"`
	Tier          string    `json:"tier"`
	LifetimeChars int64     `json:"lifetime_chars"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Artifact represents one successful non-preview generation.
type Artifact struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Text        string    `json:"text"`
	Voice       string    `json:"voice"`
	Expression  float64   `json:"expression"`
	Pitch       float64   `json:"pitch"`
	Speed       float64   `json:"speed"`
	CharCount   int64     `json:"char_count"`
	Audio       []byte    `json:"-"` // WAV bytes, never inlined in list responses
	CreatedAt   time.Time `json:"created_at"`
}
