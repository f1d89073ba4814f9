package repository_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"regexp"
	"testing"

	"chamberctl/internal/models"
	"chamberctl/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSettingsSQLite_Load_NoRowReturnsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewSettingsSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM settings")).
		WithArgs(1).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := models.DefaultSettings()
	if got.TargetTempC != want.TargetTempC || got.CooldownTargetC != want.CooldownTargetC {
		t.Fatalf("expected defaults, got %#v", got)
	}
	if len(got.MaterialMappings) != len(want.MaterialMappings) {
		t.Fatalf("expected default material mappings, got %d entries", len(got.MaterialMappings))
	}
}

func TestSettingsSQLite_Load_DocumentOverridesDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewSettingsSQLite(db)

	doc := `{"desired_temp": 70.5, "skip_preheat": true}`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM settings")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow(doc))

	got, err := repo.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.TargetTempC != 70.5 {
		t.Fatalf("expected overridden target 70.5, got %v", got.TargetTempC)
	}
	if !got.SkipPreheat {
		t.Fatalf("expected skip_preheat true")
	}
	// Fields absent from the document keep their defaults.
	if got.CooldownHours != 4.0 {
		t.Fatalf("expected default cooldown hours, got %v", got.CooldownHours)
	}
}

func TestSettingsSQLite_Load_MalformedDocumentFallsBackToDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewSettingsSQLite(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT doc FROM settings")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow("{not json"))

	got, err := repo.Load(context.Background())
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if got.TargetTempC != models.DefaultSettings().TargetTempC {
		t.Fatalf("expected defaults on malformed doc, got %#v", got)
	}
}

func TestSettingsSQLite_Save_WritesDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewSettingsSQLite(db)

	s := models.DefaultSettings()
	s.TargetTempC = 65

	docContainsTarget := argMatcherFunc(func(v driver.Value) bool {
		doc, ok := v.(string)
		return ok && regexp.MustCompile(`"desired_temp":65`).MatchString(doc)
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO settings")).
		WithArgs(1, docContainsTarget, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Save(context.Background(), s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
