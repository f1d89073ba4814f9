package controller

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"chamberctl/internal/models"
)

// TempLog writes one CSV file per heating session for later analysis. Files
// are named by session start time and live flat in a single directory.
type TempLog struct {
	dir string

	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
	name string
}

// LogInfo describes one stored CSV file.
type LogInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size"`
	Modified  time.Time `json:"modified"`
}

func NewTempLog(dir string) (*TempLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return &TempLog{dir: dir}, nil
}

// OpenSession starts a new log file. Any previously open file is closed
// first.
func (l *TempLog) OpenSession(start time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()

	name := "chamber_" + start.Format("20060102_150405") + ".csv"
	f, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	l.file = f
	l.w = csv.NewWriter(f)
	l.name = name
	return l.w.Write([]string{"time", "temp_c", "setpoint_c", "heater_on"})
}

// Append writes one sample. A no-op when no session log is open.
func (l *TempLog) Append(s models.TemperatureSample, heaterOn bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	rec := []string{
		s.Time.Format(time.RFC3339),
		strconv.FormatFloat(s.TempC, 'f', 2, 64),
		strconv.FormatFloat(s.Setpoint, 'f', 2, 64),
		strconv.FormatBool(heaterOn),
	}
	if err := l.w.Write(rec); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

// Close ends the current session log.
func (l *TempLog) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
}

func (l *TempLog) closeLocked() {
	if l.w != nil {
		l.w.Flush()
	}
	if l.file != nil {
		l.file.Close()
	}
	l.file, l.w, l.name = nil, nil, ""
}

// List returns the stored logs, newest first.
func (l *TempLog) List() ([]LogInfo, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	out := make([]LogInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, LogInfo{Name: e.Name(), SizeBytes: info.Size(), Modified: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Modified.After(out[j].Modified) })
	return out, nil
}

// Path resolves a stored log name to its on-disk path, rejecting anything
// that could escape the log directory.
func (l *TempLog) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".csv") {
		return "", fmt.Errorf("invalid log name %q", name)
	}
	p := filepath.Join(l.dir, name)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("log %q not found", name)
	}
	return p, nil
}
