package handlers

import (
	"net/http"
	"testing"
)

func TestSettings_GetAndUpdate(t *testing.T) {
	r, fix := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/settings", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: got %d, body=%s", w.Code, w.Body.String())
	}
	out := decodeBody(t, w)
	if out["desired_temp"].(float64) != 60.0 {
		t.Fatalf("default target temp: got %v", out["desired_temp"])
	}

	w = doRequest(r, http.MethodPut, "/api/v1/settings", `{"desired_temp":47.5,"hysteresis":1.5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, body=%s", w.Code, w.Body.String())
	}
	out = decodeBody(t, w)
	if out["desired_temp"].(float64) != 47.5 || out["hysteresis"].(float64) != 1.5 {
		t.Fatalf("patched settings not returned: %v", out)
	}

	// change reached both the repository and the controller
	if fix.settings.saved == nil || fix.settings.saved.TargetTempC != 47.5 {
		t.Fatalf("settings not persisted: %+v", fix.settings.saved)
	}
	if got := fix.chamber.Settings().TargetTempC; got != 47.5 {
		t.Fatalf("controller settings: got %v, want 47.5", got)
	}

	// unparseable patch -> 400
	w = doRequest(r, http.MethodPut, "/api/v1/settings", `{"desired_temp":"hot"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad patch: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPresets_SaveApplyDelete(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/presets", `{"name":"nylon-dry","temp":75,"hours":12,"minutes":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save preset: got %d, body=%s", w.Code, w.Body.String())
	}

	// nameless preset rejected
	w = doRequest(r, http.MethodPost, "/api/v1/presets", `{"temp":75}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("nameless preset: got %d, want %d", w.Code, http.StatusBadRequest)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/presets/nylon-dry/apply", "")
	if w.Code != http.StatusOK {
		t.Fatalf("apply: got %d, body=%s", w.Code, w.Body.String())
	}
	out := decodeBody(t, w)
	if out["desired_temp"].(float64) != 75.0 {
		t.Fatalf("apply did not copy temp: %v", out)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/presets/no-such/apply", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("apply unknown: got %d, want %d", w.Code, http.StatusNotFound)
	}

	w = doRequest(r, http.MethodDelete, "/api/v1/presets/nylon-dry", "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: got %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(r, http.MethodDelete, "/api/v1/presets/nylon-dry", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete twice: got %d, want %d", w.Code, http.StatusNotFound)
	}
}
