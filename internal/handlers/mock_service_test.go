package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chamberctl/internal/controller"
	"chamberctl/internal/hardware"
	"chamberctl/internal/logger"
	"chamberctl/internal/models"
	"chamberctl/internal/repository"
	"chamberctl/internal/service"
)

// ---- Service mocks and in-memory repos ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type memSessionRepo struct {
	mu   sync.Mutex
	snap *models.SessionSnapshot
}

func (m *memSessionRepo) Save(_ context.Context, s models.SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = &s
	return nil
}

func (m *memSessionRepo) Load(context.Context) (*models.SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	return &cp, nil
}

func (m *memSessionRepo) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = nil
	return nil
}

type memSettingsRepo struct {
	mu    sync.Mutex
	saved *models.Settings
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
	m.saved = &s
	return nil
}

type memEventRepo struct {
	mu     sync.Mutex
	events []models.ControllerEvent
	err    error
}

func (m *memEventRepo) Append(_ context.Context, e models.ControllerEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEventRepo) List(context.Context, time.Time, time.Time, string) ([]models.ControllerEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]models.ControllerEvent(nil), m.events...), nil
}

// ---- Shared test fixture ----

type fixture struct {
	auth     *mockAuth
	chamber  *controller.Controller
	bus      *hardware.SimBus
	sensors  *hardware.SimSensors
	events   *memEventRepo
	settings *memSettingsRepo
}

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Get(logger.ErrorLevel)
	bus := hardware.NewSimBus()
	sensors := hardware.NewSimSensors(hardware.ProbeReading{ID: "28-x", TempC: 22})
	sessions := &memSessionRepo{}
	settings := &memSettingsRepo{}
	events := &memEventRepo{}
	repos := &repository.Repository{Sessions: sessions, Settings: settings, Events: events}

	tl, err := controller.NewTempLog(t.TempDir())
	if err != nil {
		t.Fatalf("temp log: %v", err)
	}
	chamber := controller.New(log, repos, bus, bus, hardware.NewAggregator(sensors), tl, models.DefaultSettings())
	printerSvc := service.NewPrinterService(log, chamber)

	auth := &mockAuth{parseID: 1}
	svc := &service.Service{
		Authorization: auth,
		Chamber:       chamber,
		Settings:      service.NewSettingsService(log, settings, chamber, printerSvc),
		EventLog:      service.NewEventLogService(events),
		Printer:       printerSvc,
	}

	h := NewHandler(svc, nil)
	return h.InitRoutes(), &fixture{
		auth:     auth,
		chamber:  chamber,
		bus:      bus,
		sensors:  sensors,
		events:   events,
		settings: settings,
	}
}

// doRequest performs a request against the router with a Bearer token so the
// middleware passes it to the mock authorizer.
func doRequest(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Authorization", "Bearer token")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
