package printer

import (
	"testing"

	"chamberctl/internal/models"
)

func TestResolveMaterial_SlotOverrideWins(t *testing.T) {
	st := models.PrinterStatus{TrayNow: 1, TrayTarget: -1}
	st.AMSSlots[1] = "PETG"
	cfg := models.DefaultSettings()
	cfg.SlotOverrides["1"] = "ASA"

	if got := ResolveMaterial(st, cfg, ""); got != "ASA" {
		t.Fatalf("override must win, got %q", got)
	}
}

func TestResolveMaterial_TrayType(t *testing.T) {
	st := models.PrinterStatus{TrayNow: 2, TrayTarget: -1}
	st.AMSSlots[2] = "ABS-GF"

	if got := ResolveMaterial(st, models.DefaultSettings(), ""); got != "ABS" {
		t.Fatalf("tray type substring must resolve to ABS, got %q", got)
	}
}

func TestResolveMaterial_TargetSlotDuringChange(t *testing.T) {
	st := models.PrinterStatus{TrayNow: 0, TrayTarget: 3}
	st.AMSSlots[0] = "PLA"
	st.AMSSlots[3] = "ASA"

	if got := ResolveMaterial(st, models.DefaultSettings(), ""); got != "ASA" {
		t.Fatalf("target slot must win during filament change, got %q", got)
	}
}

func TestResolveMaterial_ExternalSpool(t *testing.T) {
	st := models.PrinterStatus{TrayNow: 254, TrayTarget: -1, ExternalSpool: "PETG Basic"}
	cfg := models.DefaultSettings()

	if got := ResolveMaterial(st, cfg, ""); got != "PETG" {
		t.Fatalf("external spool tray type must resolve, got %q", got)
	}

	cfg.ExternalSpool = "ABS"
	if got := ResolveMaterial(st, cfg, ""); got != "ABS" {
		t.Fatalf("external spool setting must win, got %q", got)
	}
}

func TestResolveMaterial_Filename(t *testing.T) {
	cases := []struct {
		file string
		want string
	}{
		{"benchy_ABS.3mf", "ABS"},
		{"bracket-asa_v2.gcode", "ASA"},
		{"nylon gear.3mf", "NYLON"},
		{"PLAte_holder.3mf", ""},     // PLA inside a word must not match
		{"displacement_map.3mf", ""}, // ditto
	}
	for _, tc := range cases {
		st := models.PrinterStatus{TrayNow: -1, TrayTarget: -1, File: tc.file}
		if got := ResolveMaterial(st, models.DefaultSettings(), ""); got != tc.want {
			t.Errorf("file %q: got %q, want %q", tc.file, got, tc.want)
		}
	}
}

func TestResolveMaterial_StickyFallback(t *testing.T) {
	st := models.PrinterStatus{Phase: PhasePrinting, TrayNow: -1, TrayTarget: -1, File: "mystery.3mf"}
	if got := ResolveMaterial(st, models.DefaultSettings(), "ASA"); got != "ASA" {
		t.Fatalf("unresolvable state mid-print must keep previous material, got %q", got)
	}

	// Outside a print there is nothing for the old value to describe.
	st.Phase = PhaseIdle
	if got := ResolveMaterial(st, models.DefaultSettings(), "ASA"); got != "" {
		t.Fatalf("previous material must not survive an idle printer, got %q", got)
	}
}

func TestMatchMaterial_LongestFirst(t *testing.T) {
	if got := matchMaterial("PC-ABS"); got != "ABS" {
		// ABS is checked before PC in the ordered list.
		t.Fatalf("got %q", got)
	}
	if got := matchMaterial("Nylon-CF"); got != "NYLON" {
		t.Fatalf("got %q", got)
	}
	if got := matchMaterial("unknown stuff"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
}
