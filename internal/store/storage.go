// Package store handles profile and artifact persistence.
package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"voxgate/internal/errs"
)

// Storage wraps the sqlite database holding profiles and artifacts.
type Storage struct {
	db *sql.DB
}

// NewStorage opens (or creates) the database at dbPath and migrates it.
func NewStorage(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates necessary tables
func (s *Storage) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS profiles (
		principal_id TEXT PRIMARY KEY,
		tier TEXT NOT NULL DEFAULT 'free',
		lifetime_chars INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id TEXT PRIMARY KEY,
		principal_id TEXT NOT NULL,
		text TEXT NOT NULL,
		voice TEXT NOT NULL,
		expression REAL DEFAULT 0,
		pitch REAL DEFAULT 0,
		speed REAL DEFAULT 1,
		char_count INTEGER NOT NULL,
		audio BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (principal_id) REFERENCES profiles(principal_id)
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_principal ON artifacts(principal_id);
	CREATE INDEX IF NOT EXISTS idx_artifacts_created ON artifacts(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

// GetOrCreateProfile returns the profile for principalID, creating it with
// defaultTier on first reference.
func (s *Storage) GetOrCreateProfile(principalID, defaultTier string) (*Profile, error) {
	p, err := s.getProfile(principalID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	// OR IGNORE: two concurrent first-references may both attempt the insert.
	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO profiles (principal_id, tier) VALUES (?, ?)
	`, principalID, defaultTier)
	if err != nil {
		return nil, err
	}

	return s.getProfile(principalID)
}

func (s *Storage) getProfile(principalID string) (*Profile, error) {
	var p Profile
	err := s.db.QueryRow(`
		SELECT principal_id, tier, lifetime_chars, created_at, updated_at
		FROM profiles WHERE principal_id = ?
	`, principalID).Scan(&p.PrincipalID, &p.Tier, &p.LifetimeChars, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateLifetimeChars persists the authoritative lifetime counter.
func (s *Storage) UpdateLifetimeChars(principalID string, chars int64) error {
	_, err := s.db.Exec(`
		UPDATE profiles SET lifetime_chars = ?, updated_at = ? WHERE principal_id = ?
	`, chars, time.Now(), principalID)
	return err
}

// SaveArtifact inserts a generation record together with its audio bytes.
func (s *Storage) SaveArtifact(a *Artifact) error {
	_, err := s.db.Exec(`
		INSERT INTO artifacts (id, principal_id, text, voice, expression, pitch, speed, char_count, audio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.PrincipalID, a.Text, a.Voice, a.Expression, a.Pitch, a.Speed, a.CharCount, a.Audio, a.CreatedAt)
	return err
}

// GetArtifact returns an artifact by ID, audio included.
func (s *Storage) GetArtifact(id string) (*Artifact, error) {
	var a Artifact
	err := s.db.QueryRow(`
		SELECT id, principal_id, text, voice, expression, pitch, speed, char_count, audio, created_at
		FROM artifacts WHERE id = ?
	`, id).Scan(&a.ID, &a.PrincipalID, &a.Text, &a.Voice, &a.Expression, &a.Pitch, &a.Speed, &a.CharCount, &a.Audio, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteArtifact removes an artifact by ID.
func (s *Storage) DeleteArtifact(id string) error {
	_, err := s.db.Exec("DELETE FROM artifacts WHERE id = ?", id)
	return err
}

// ListArtifacts returns a principal's artifacts newest first, without audio.
func (s *Storage) ListArtifacts(principalID string) ([]Artifact, error) {
	rows, err := s.db.Query(`
		SELECT id, principal_id, text, voice, expression, pitch, speed, char_count, created_at
		FROM artifacts WHERE principal_id = ? ORDER BY created_at DESC
	`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.ID, &a.PrincipalID, &a.Text, &a.Voice, &a.Expression, &a.Pitch, &a.Speed, &a.CharCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, rows.Err()
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection
func (s *Storage) DB() *sql.DB {
	return s.db
}
