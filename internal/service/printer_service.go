package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"chamberctl/internal/controller"
	"chamberctl/internal/logger"
	"chamberctl/internal/models"
	"chamberctl/internal/printer"
)

var ErrPrinterDisabled = errors.New("printer integration is disabled")

// observeEvery drives the reconciler even when the printer sends nothing,
// so a phase change delivered in a stale projection is still acted on.
const observeEvery = time.Second

// PrinterService owns the printer integration lifecycle: it connects and
// reconnects the MQTT feed as settings change, drives the reconciler and
// proxies print commands.
type PrinterService struct {
	log        *logger.Logger
	chamber    *controller.Controller
	proj       *printer.Projection
	reconciler *printer.Reconciler

	mu      sync.Mutex
	feed    *printer.Feed
	cfg     printer.FeedConfig
	enabled bool
}

func NewPrinterService(log *logger.Logger, chamber *controller.Controller) *PrinterService {
	s := &PrinterService{
		log:     log,
		chamber: chamber,
		proj:    printer.NewProjection(),
	}
	s.reconciler = printer.NewReconciler(log, chamber, s.proj)
	chamber.SetPrinterSource(s.proj.Status)
	chamber.SetManualStopHook(s.reconciler.ClearTrigger)
	chamber.SetFireAlarmHook(func() {
		if err := s.SendCommand("stop"); err != nil && !errors.Is(err, ErrPrinterDisabled) {
			log.Errorw("printer stop on fire alarm failed", "error", err)
		}
	})
	return s
}

// Status returns the current printer projection.
func (s *PrinterService) Status() models.PrinterStatus {
	return s.proj.Status()
}

// Reconfigure applies the printer-related settings, reconnecting the feed
// when the connection parameters changed.
func (s *PrinterService) Reconfigure(cfg models.Settings) {
	next := printer.FeedConfig{
		IP:         cfg.PrinterIP,
		AccessCode: cfg.PrinterAccessCode,
		Serial:     cfg.PrinterSerial,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.PrinterEnabled == s.enabled && next == s.cfg {
		return
	}
	if s.feed != nil {
		s.feed.Close()
		s.feed = nil
	}
	s.enabled = cfg.PrinterEnabled
	s.cfg = next

	if !s.enabled || next.IP == "" {
		return
	}

	feed := printer.NewFeed(s.log, s.proj, next, s.onReport)
	s.feed = feed
	// Connecting can block for seconds; never hold the settings path on it.
	go func() {
		if err := feed.Connect(); err != nil {
			s.log.Warnw("printer connect failed", "ip", next.IP, "error", err)
		}
	}()
}

func (s *PrinterService) onReport(st models.PrinterStatus) {
	s.reconciler.Observe(time.Now(), st, s.chamber.Settings())
}

// Run ticks the reconciler until the context is cancelled.
func (s *PrinterService) Run(ctx context.Context) {
	t := time.NewTicker(observeEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-t.C:
		}

		s.mu.Lock()
		enabled := s.enabled
		s.mu.Unlock()
		if !enabled {
			continue
		}
		s.reconciler.Observe(time.Now(), s.proj.Status(), s.chamber.Settings())
	}
}

// SendCommand proxies pause/resume/stop to the printer.
func (s *PrinterService) SendCommand(command string) error {
	s.mu.Lock()
	feed := s.feed
	s.mu.Unlock()
	if feed == nil {
		return ErrPrinterDisabled
	}
	return feed.SendPrintCommand(command)
}

// TestConnection validates a connection triple without touching the live
// feed.
func (s *PrinterService) TestConnection(ip, accessCode, serial string) error {
	return printer.TestConnection(printer.FeedConfig{IP: ip, AccessCode: accessCode, Serial: serial})
}

// Close tears the feed down.
func (s *PrinterService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feed != nil {
		s.feed.Close()
		s.feed = nil
	}
}
