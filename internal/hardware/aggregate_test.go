package hardware

import (
	"errors"
	"testing"
)

func TestAggregator_AveragesGoodProbes(t *testing.T) {
	sensors := NewSimSensors(
		ProbeReading{ID: "28-aaa", TempC: 20},
		ProbeReading{ID: "28-bbb", TempC: 22},
		ProbeReading{ID: "28-ccc", TempC: 24},
	)
	agg := NewAggregator(sensors)

	avg, detail, err := agg.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 22 {
		t.Fatalf("expected average 22, got %v", avg)
	}
	if len(detail) != 3 {
		t.Fatalf("expected 3 probe entries, got %d", len(detail))
	}
	if detail[0].Name != "Probe 1" || detail[2].Name != "Probe 3" {
		t.Fatalf("unexpected default names: %#v", detail)
	}
}

func TestAggregator_ToleratesPartialFailure(t *testing.T) {
	sensors := NewSimSensors(
		ProbeReading{ID: "28-aaa", TempC: 60},
		ProbeReading{ID: "28-bbb", Err: errors.New("probe not ready")},
	)
	agg := NewAggregator(sensors)

	avg, detail, err := agg.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg != 60 {
		t.Fatalf("expected average from the one good probe, got %v", avg)
	}
	if detail[1].TempC != nil {
		t.Fatalf("failed probe must report nil temp")
	}
}

func TestAggregator_AllFailed(t *testing.T) {
	sensors := NewSimSensors(
		ProbeReading{ID: "28-aaa", Err: errors.New("crc mismatch")},
		ProbeReading{ID: "28-bbb", Err: errors.New("crc mismatch")},
	)
	agg := NewAggregator(sensors)

	_, detail, err := agg.Read()
	if !errors.Is(err, ErrAllProbesFailed) {
		t.Fatalf("expected ErrAllProbesFailed, got %v", err)
	}
	if len(detail) != 2 {
		t.Fatalf("detail must still be populated, got %d entries", len(detail))
	}
}

func TestAggregator_CustomProbeNames(t *testing.T) {
	sensors := NewSimSensors(
		ProbeReading{ID: "28-aaa", TempC: 25},
		ProbeReading{ID: "28-bbb", TempC: 25},
	)
	agg := NewAggregator(sensors)
	agg.SetProbeNames(map[string]string{"28-aaa": "Top Left", "28-bbb": ""})

	_, detail, err := agg.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail[0].Name != "Top Left" {
		t.Fatalf("expected custom name, got %q", detail[0].Name)
	}
	if detail[1].Name != "Probe 2" {
		t.Fatalf("empty custom name must fall back, got %q", detail[1].Name)
	}
}

func TestParseW1Slave(t *testing.T) {
	good := "6e 01 4b 46 7f ff 02 10 2c : crc=2c YES\n6e 01 4b 46 7f ff 02 10 2c t=22875"
	temp, err := parseW1Slave(good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if temp != 22.875 {
		t.Fatalf("expected 22.875, got %v", temp)
	}

	bad := "6e 01 4b 46 7f ff 02 10 2c : crc=2c NO\n6e 01 4b 46 7f ff 02 10 2c t=22875"
	if _, err := parseW1Slave(bad); err == nil {
		t.Fatalf("expected CRC failure")
	}
}
