package handlers

import (
	"net/http"
	"testing"
)

func TestPrinterStatus_DefaultDisconnected(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodGet, "/api/v1/printer/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body=%s", w.Code, w.Body.String())
	}
	out := decodeBody(t, w)
	if out["printer_connected"].(bool) {
		t.Fatalf("expected disconnected printer, got %v", out)
	}
}

func TestPrinterCommand_RefusedWhenNotConfigured(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/printer/command", `{"command":"pause"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("command: got %d, want %d (body=%s)", w.Code, http.StatusConflict, w.Body.String())
	}

	// missing command field -> 400
	w = doRequest(r, http.MethodPost, "/api/v1/printer/command", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty command: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestPrinterTest_RequiresAllFields(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doRequest(r, http.MethodPost, "/api/v1/printer/test", `{"ip":"10.0.0.5"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("partial triple: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}
