package repository

import (
	"context"
	"database/sql"
	"time"

	"chamberctl/internal/models"
)

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

// SessionRepo persists the single crash-recovery snapshot. Load returns
// (nil, nil) when no snapshot exists.
type SessionRepo interface {
	Save(ctx context.Context, s models.SessionSnapshot) error
	Load(ctx context.Context) (*models.SessionSnapshot, error)
	Delete(ctx context.Context) error
}

// SettingsRepo persists the user settings document. Load merges the stored
// document over the in-code defaults.
type SettingsRepo interface {
	Load(ctx context.Context) (models.Settings, error)
	Save(ctx context.Context, s models.Settings) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.ControllerEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ControllerEvent, error)
}

type Repository struct {
	Sessions SessionRepo
	Settings SettingsRepo
	Events   EventRepo
	Auth     Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Sessions: NewSessionSQLite(db),
		Settings: NewSettingsSQLite(db),
		Events:   NewEventSQLite(db),
		Auth:     NewUserRepository(db),
	}
}
