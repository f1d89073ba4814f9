package hardware

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DS18B20Bus reads 1-Wire temperature probes through the kernel's w1 sysfs
// interface. Each probe is a directory 28-xxxxxxxxxxxx whose w1_slave file
// holds two lines: a CRC check ("... YES") and the raw reading ("... t=23500"
// in milli-degrees).
type DS18B20Bus struct {
	root   string
	probes []string
}

var _ SensorBus = (*DS18B20Bus)(nil)

const defaultW1Root = "/sys/bus/w1/devices"

// NewDS18B20Bus discovers the attached probes. An empty root uses the
// standard sysfs location. It is an error to have no probes at all: the
// controller cannot regulate a chamber it cannot measure.
func NewDS18B20Bus(root string) (*DS18B20Bus, error) {
	if root == "" {
		root = defaultW1Root
	}
	matches, err := filepath.Glob(filepath.Join(root, "28-*"))
	if err != nil {
		return nil, fmt.Errorf("scan w1 devices: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no DS18B20 probes found under %s (is the 1-Wire interface enabled?)", root)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, filepath.Base(m))
	}
	return &DS18B20Bus{root: root, probes: ids}, nil
}

// ProbeIDs returns the discovered probe identifiers in stable order.
func (b *DS18B20Bus) ProbeIDs() []string {
	out := make([]string, len(b.probes))
	copy(out, b.probes)
	return out
}

// ReadAll reads every probe, one result per probe. Individual failures are
// carried in the reading, never aborting the whole scan.
func (b *DS18B20Bus) ReadAll() []ProbeReading {
	out := make([]ProbeReading, 0, len(b.probes))
	for _, id := range b.probes {
		temp, err := b.readProbe(id)
		out = append(out, ProbeReading{ID: id, TempC: temp, Err: err})
	}
	return out
}

func (b *DS18B20Bus) readProbe(id string) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(b.root, id, "w1_slave"))
	if err != nil {
		return 0, fmt.Errorf("read probe %s: %w", id, err)
	}
	return parseW1Slave(string(raw))
}

func parseW1Slave(raw string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) < 2 {
		return 0, fmt.Errorf("short w1_slave payload")
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, fmt.Errorf("probe CRC check failed")
	}
	idx := strings.LastIndex(lines[1], "t=")
	if idx < 0 {
		return 0, fmt.Errorf("no temperature field in w1_slave payload")
	}
	milli, err := strconv.Atoi(strings.TrimSpace(lines[1][idx+2:]))
	if err != nil {
		return 0, fmt.Errorf("parse temperature: %w", err)
	}
	return float64(milli) / 1000.0, nil
}
