package printer

import "testing"

func TestProjection_StickyFields(t *testing.T) {
	p := NewProjection()

	full := `{"print":{"gcode_state":"RUNNING","subtask_name":"benchy_ABS.3mf","mc_percent":12,"mc_remaining_time":90,"nozzle_temper":250.5,"bed_temper":90.0,"chamber_temper":41.2}}`
	st, ok := p.ApplyReport([]byte(full))
	if !ok {
		t.Fatalf("full report must apply")
	}
	if st.Phase != PhasePrinting || st.File != "benchy_ABS.3mf" || st.Progress != 12 {
		t.Fatalf("unexpected state after full report: %+v", st)
	}
	if st.RemainingSec != 90*60 {
		t.Fatalf("remaining minutes must convert to seconds, got %d", st.RemainingSec)
	}

	// A delta that only carries progress must leave everything else alone.
	st, ok = p.ApplyReport([]byte(`{"print":{"mc_percent":13}}`))
	if !ok {
		t.Fatalf("delta must apply")
	}
	if st.Progress != 13 {
		t.Fatalf("progress not updated: %+v", st)
	}
	if st.Phase != PhasePrinting || st.File != "benchy_ABS.3mf" || st.NozzleTempC != 250.5 {
		t.Fatalf("delta wiped sticky fields: %+v", st)
	}
}

func TestProjection_GcodeStateMapping(t *testing.T) {
	cases := map[string]string{
		"RUNNING": PhasePrinting,
		"PREPARE": PhasePrinting,
		"PAUSE":   PhasePaused,
		"FINISH":  PhaseFinished,
		"FAILED":  PhaseFailed,
		"IDLE":    PhaseIdle,
		"unknown": PhaseIdle,
	}
	for state, want := range cases {
		if got := phaseFromGcodeState(state); got != want {
			t.Errorf("gcode_state %q: got %q, want %q", state, got, want)
		}
	}
}

func TestProjection_AMSAndTrays(t *testing.T) {
	p := NewProjection()

	payload := `{"print":{"ams":{"ams":[{"tray":[{"id":"0","tray_type":"ABS"},{"id":"1","tray_type":"PETG"}]}],"tray_now":"1","tray_tar":"255"},"vt_tray":{"tray_type":"ASA"}}}`
	st, ok := p.ApplyReport([]byte(payload))
	if !ok {
		t.Fatalf("report must apply")
	}
	if st.AMSSlots[0] != "ABS" || st.AMSSlots[1] != "PETG" {
		t.Fatalf("AMS slots not captured: %+v", st.AMSSlots)
	}
	if st.TrayNow != 1 || st.TrayTarget != 255 {
		t.Fatalf("tray indices not captured: now=%d tar=%d", st.TrayNow, st.TrayTarget)
	}
	if st.ExternalSpool != "ASA" {
		t.Fatalf("external spool not captured: %q", st.ExternalSpool)
	}
}

func TestProjection_IgnoresGarbage(t *testing.T) {
	p := NewProjection()
	if _, ok := p.ApplyReport([]byte(`not json`)); ok {
		t.Fatalf("garbage must not apply")
	}
	if _, ok := p.ApplyReport([]byte(`{"system":{"command":"ledctrl"}}`)); ok {
		t.Fatalf("non-print payloads must not apply")
	}
}

func TestProjection_ConnectedFlag(t *testing.T) {
	p := NewProjection()
	p.SetConnected(true)
	if !p.Status().Connected {
		t.Fatalf("expected connected")
	}
	p.SetConnected(false)
	if p.Status().Connected {
		t.Fatalf("expected disconnected")
	}
}
