package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chamberctl/internal/controller"
	"chamberctl/internal/hardware"
	"chamberctl/internal/logger"
	"chamberctl/internal/models"
	"chamberctl/internal/repository"
)

type memSettingsRepo struct {
	mu    sync.Mutex
	saved *models.Settings
	err   error
}

func (m *memSettingsRepo) Load(context.Context) (models.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		return models.DefaultSettings(), nil
	}
	return *m.saved, nil
}

func (m *memSettingsRepo) Save(_ context.Context, s models.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = &s
	return nil
}

type noopSessions struct{}

func (noopSessions) Save(context.Context, models.SessionSnapshot) error    { return nil }
func (noopSessions) Load(context.Context) (*models.SessionSnapshot, error) { return nil, nil }
func (noopSessions) Delete(context.Context) error                          { return nil }

type noopEventRepo struct{}

func (noopEventRepo) Append(context.Context, models.ControllerEvent) error { return nil }
func (noopEventRepo) List(context.Context, time.Time, time.Time, string) ([]models.ControllerEvent, error) {
	return nil, nil
}

func newSettingsFixture(t *testing.T) (*SettingsService, *memSettingsRepo, *controller.Controller) {
	t.Helper()
	log := logger.Get(logger.ErrorLevel)
	bus := hardware.NewSimBus()
	sensors := hardware.NewAggregator(hardware.NewSimSensors(hardware.ProbeReading{ID: "28-x", TempC: 21}))
	tl, err := controller.NewTempLog(t.TempDir())
	if err != nil {
		t.Fatalf("temp log: %v", err)
	}
	repo := &memSettingsRepo{}
	chamber := controller.New(log,
		&repository.Repository{Sessions: noopSessions{}, Settings: repo, Events: noopEventRepo{}},
		bus, bus, sensors, tl, models.DefaultSettings())
	svc := NewSettingsService(log, repo, chamber, nil)
	return svc, repo, chamber
}

func TestSettingsService_UpdateMergesAndPersists(t *testing.T) {
	svc, repo, chamber := newSettingsFixture(t)

	temp := 72.5
	skip := true
	got, err := svc.Update(context.Background(), models.SettingsPatch{
		TargetTempC: &temp,
		SkipPreheat: &skip,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.TargetTempC != 72.5 || !got.SkipPreheat {
		t.Fatalf("patch not applied: %+v", got)
	}
	// Untouched fields keep their defaults.
	if got.PrintHours != 8 || !got.FansEnabled {
		t.Fatalf("unpatched fields changed: %+v", got)
	}

	if repo.saved == nil || repo.saved.TargetTempC != 72.5 {
		t.Fatalf("settings not persisted")
	}
	if chamber.Settings().TargetTempC != 72.5 {
		t.Fatalf("controller did not pick up new settings")
	}
}

func TestSettingsService_UpdateSaveFailureDoesNotApply(t *testing.T) {
	svc, repo, chamber := newSettingsFixture(t)
	repo.err = errors.New("disk full")

	temp := 99.0
	if _, err := svc.Update(context.Background(), models.SettingsPatch{TargetTempC: &temp}); err == nil {
		t.Fatalf("expected save error")
	}
	if chamber.Settings().TargetTempC == 99.0 {
		t.Fatalf("failed save must not reach the controller")
	}
}

func TestSettingsService_PresetLifecycle(t *testing.T) {
	svc, _, _ := newSettingsFixture(t)
	ctx := context.Background()

	got, err := svc.SavePreset(ctx, models.Preset{Name: "PC Dry", TempC: 70, Hours: 6})
	if err != nil {
		t.Fatalf("save preset: %v", err)
	}
	if len(got.Presets) != 4 {
		t.Fatalf("expected 4 presets, got %d", len(got.Presets))
	}

	// Same name replaces instead of duplicating.
	got, err = svc.SavePreset(ctx, models.Preset{Name: "PC Dry", TempC: 75, Hours: 5})
	if err != nil {
		t.Fatalf("replace preset: %v", err)
	}
	if len(got.Presets) != 4 {
		t.Fatalf("replace must not grow the list, got %d", len(got.Presets))
	}

	got, err = svc.ApplyPreset(ctx, "PC Dry")
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if got.TargetTempC != 75 || got.PrintHours != 5 || got.PrintMinutes != 0 {
		t.Fatalf("preset not applied to settings: %+v", got)
	}

	if _, err := svc.ApplyPreset(ctx, "nope"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}

	got, err = svc.DeletePreset(ctx, "PC Dry")
	if err != nil {
		t.Fatalf("delete preset: %v", err)
	}
	if len(got.Presets) != 3 {
		t.Fatalf("expected 3 presets after delete, got %d", len(got.Presets))
	}
	if _, err := svc.DeletePreset(ctx, "PC Dry"); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}
}
