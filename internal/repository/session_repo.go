package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chamberctl/internal/models"
)

// SessionSQLite stores the single crash-recovery snapshot in one row (id=1).
type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

var _ SessionRepo = (*SessionSQLite)(nil)

const (
	sessionRowID = 1

	upsertSessionSQL = `
		INSERT INTO session_snapshot (id, phase, started_at, duration_s, paused_s, is_paused,
			target_c, fans_enabled, logging_enabled, adjustment_s,
			heater_manual, fans_manual, heater_on, fans_on, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			phase=excluded.phase,
			started_at=excluded.started_at,
			duration_s=excluded.duration_s,
			paused_s=excluded.paused_s,
			is_paused=excluded.is_paused,
			target_c=excluded.target_c,
			fans_enabled=excluded.fans_enabled,
			logging_enabled=excluded.logging_enabled,
			adjustment_s=excluded.adjustment_s,
			heater_manual=excluded.heater_manual,
			fans_manual=excluded.fans_manual,
			heater_on=excluded.heater_on,
			fans_on=excluded.fans_on,
			saved_at=excluded.saved_at
	`

	selectSessionSQL = `
		SELECT phase, started_at, duration_s, paused_s, is_paused,
			target_c, fans_enabled, logging_enabled, adjustment_s,
			heater_manual, fans_manual, heater_on, fans_on, saved_at
		FROM session_snapshot WHERE id=?
	`

	deleteSessionSQL = `DELETE FROM session_snapshot WHERE id=?`
)

// Save upserts the snapshot row. SavedAt is normalized to UTC and set to
// "now" when zero.
func (r *SessionSQLite) Save(ctx context.Context, s models.SessionSnapshot) error {
	savedAt := s.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	} else {
		savedAt = savedAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, upsertSessionSQL,
		sessionRowID,
		string(s.Phase),
		s.StartedAt.UTC(),
		s.DurationSec,
		s.PausedSec,
		s.IsPaused,
		s.TargetTempC,
		s.FansEnabled,
		s.LoggingOn,
		s.AdjustmentSec,
		s.HeaterManual,
		s.FansManual,
		s.HeaterOn,
		s.FansOn,
		savedAt,
	)
	return err
}

// Load fetches the snapshot, or (nil, nil) when none is persisted.
func (r *SessionSQLite) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	row := r.db.QueryRowContext(ctx, selectSessionSQL, sessionRowID)

	var s models.SessionSnapshot
	var phase string
	if err := row.Scan(
		&phase,
		&s.StartedAt,
		&s.DurationSec,
		&s.PausedSec,
		&s.IsPaused,
		&s.TargetTempC,
		&s.FansEnabled,
		&s.LoggingOn,
		&s.AdjustmentSec,
		&s.HeaterManual,
		&s.FansManual,
		&s.HeaterOn,
		&s.FansOn,
		&s.SavedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	s.Phase = models.Phase(phase)
	s.StartedAt = s.StartedAt.UTC()
	s.SavedAt = s.SavedAt.UTC()
	return &s, nil
}

// Delete removes the snapshot row. Deleting a missing row is not an error.
func (r *SessionSQLite) Delete(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, deleteSessionSQL, sessionRowID)
	return err
}
