package service

import (
	"context"
	"errors"
	"fmt"

	"chamberctl/internal/controller"
	"chamberctl/internal/logger"
	"chamberctl/internal/models"
	"chamberctl/internal/repository"
)

var ErrPresetNotFound = errors.New("preset not found")

// SettingsService owns the read-modify-write cycle for settings: merge the
// patch, persist, then push the result into the controller and the printer
// integration.
type SettingsService struct {
	log     *logger.Logger
	repo    repository.SettingsRepo
	chamber *controller.Controller
	printer *PrinterService
}

func NewSettingsService(
	log *logger.Logger,
	repo repository.SettingsRepo,
	chamber *controller.Controller,
	printer *PrinterService,
) *SettingsService {
	return &SettingsService{log: log, repo: repo, chamber: chamber, printer: printer}
}

// Get returns the live settings.
func (s *SettingsService) Get() models.Settings {
	return s.chamber.Settings()
}

// Update merges a partial update, persists and propagates it.
func (s *SettingsService) Update(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	cur := s.chamber.Settings()
	patch.Apply(&cur)
	return cur, s.commit(ctx, cur)
}

// SavePreset adds the preset, replacing any existing one with the same name.
func (s *SettingsService) SavePreset(ctx context.Context, p models.Preset) (models.Settings, error) {
	if p.Name == "" {
		return models.Settings{}, fmt.Errorf("preset name is required")
	}
	cur := s.chamber.Settings()
	replaced := false
	for i := range cur.Presets {
		if cur.Presets[i].Name == p.Name {
			cur.Presets[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		cur.Presets = append(cur.Presets, p)
	}
	return cur, s.commit(ctx, cur)
}

// DeletePreset removes the named preset.
func (s *SettingsService) DeletePreset(ctx context.Context, name string) (models.Settings, error) {
	cur := s.chamber.Settings()
	kept := cur.Presets[:0:0]
	for _, p := range cur.Presets {
		if p.Name != name {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(cur.Presets) {
		return models.Settings{}, ErrPresetNotFound
	}
	cur.Presets = kept
	return cur, s.commit(ctx, cur)
}

// ApplyPreset copies the preset's target and duration into the settings.
func (s *SettingsService) ApplyPreset(ctx context.Context, name string) (models.Settings, error) {
	cur := s.chamber.Settings()
	for _, p := range cur.Presets {
		if p.Name == name {
			cur.TargetTempC = p.TempC
			cur.PrintHours = p.Hours
			cur.PrintMinutes = p.Minutes
			return cur, s.commit(ctx, cur)
		}
	}
	return models.Settings{}, ErrPresetNotFound
}

func (s *SettingsService) commit(ctx context.Context, next models.Settings) error {
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.chamber.ApplySettings(next)
	if s.printer != nil {
		s.printer.Reconfigure(next)
	}
	return nil
}
