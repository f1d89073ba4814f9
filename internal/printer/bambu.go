package printer

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"chamberctl/internal/logger"
	"chamberctl/internal/models"
)

// Bambu printers run a local MQTT broker on 8883 with a self-signed
// certificate. Username is fixed, the password is the LAN access code.
const (
	brokerPort     = 8883
	brokerUsername = "bblp"
	connectTimeout = 10 * time.Second
	keepAlive      = 30 * time.Second
)

// FeedConfig is the connection triple from settings.
type FeedConfig struct {
	IP         string
	AccessCode string
	Serial     string
}

func (c FeedConfig) complete() bool {
	return c.IP != "" && c.AccessCode != "" && c.Serial != ""
}

func (c FeedConfig) broker() string { return fmt.Sprintf("ssl://%s:%d", c.IP, brokerPort) }

func (c FeedConfig) reportTopic() string  { return fmt.Sprintf("device/%s/report", c.Serial) }
func (c FeedConfig) requestTopic() string { return fmt.Sprintf("device/%s/request", c.Serial) }

// Feed maintains the MQTT subscription to the printer's report topic and
// pushes every state change into the projection and the reconciler.
type Feed struct {
	log  *logger.Logger
	proj *Projection
	cfg  FeedConfig

	client mqtt.Client
	seq    atomic.Uint64

	// onUpdate fires after each applied report, outside the projection lock.
	onUpdate func(models.PrinterStatus)
}

func NewFeed(log *logger.Logger, proj *Projection, cfg FeedConfig, onUpdate func(models.PrinterStatus)) *Feed {
	return &Feed{log: log, proj: proj, cfg: cfg, onUpdate: onUpdate}
}

// Connect dials the printer and subscribes. The paho client reconnects on
// its own afterwards; transport state is mirrored into the projection.
func (f *Feed) Connect() error {
	if !f.cfg.complete() {
		return fmt.Errorf("printer connection not configured")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(f.cfg.broker()).
		SetClientID(fmt.Sprintf("chamberctl-%d", time.Now().Unix())).
		SetUsername(brokerUsername).
		SetPassword(f.cfg.AccessCode).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: true}).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetOnConnectHandler(f.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			f.proj.SetConnected(false)
			f.log.Warnw("printer connection lost", "error", err)
		})

	f.client = mqtt.NewClient(opts)
	tok := f.client.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("printer connect timeout after %s", connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("printer connect: %w", err)
	}
	return nil
}

func (f *Feed) onConnect(c mqtt.Client) {
	f.proj.SetConnected(true)
	f.log.Infow("printer connected", "broker", f.cfg.broker())

	if tok := c.Subscribe(f.cfg.reportTopic(), 0, f.handleReport); tok.Wait() && tok.Error() != nil {
		f.log.Errorw("report subscribe failed", "error", tok.Error())
		return
	}
	// Ask for a full state dump; afterwards the printer only sends deltas.
	f.requestPushAll(c)
}

func (f *Feed) handleReport(_ mqtt.Client, msg mqtt.Message) {
	st, changed := f.proj.ApplyReport(msg.Payload())
	if !changed {
		return
	}
	f.log.Debugw("printer report applied", "state", describe(st))
	if f.onUpdate != nil {
		f.onUpdate(st)
	}
}

func (f *Feed) requestPushAll(c mqtt.Client) {
	payload, _ := json.Marshal(map[string]any{
		"pushing": map[string]any{
			"sequence_id": f.nextSeq(),
			"command":     "pushall",
		},
	})
	if tok := c.Publish(f.cfg.requestTopic(), 0, false, payload); tok.Wait() && tok.Error() != nil {
		f.log.Errorw("pushall request failed", "error", tok.Error())
	}
}

func (f *Feed) nextSeq() string {
	return fmt.Sprintf("%d", f.seq.Add(1))
}

// Close disconnects from the broker.
func (f *Feed) Close() {
	if f.client != nil && f.client.IsConnected() {
		f.client.Disconnect(250)
	}
	f.proj.SetConnected(false)
}

// Connected reports transport-level connectivity.
func (f *Feed) Connected() bool {
	return f.client != nil && f.client.IsConnectionOpen()
}

// Printer print-control commands proxied through the chamber API.
const (
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandStop   = "stop"
)

// SendPrintCommand publishes a pause/resume/stop request to the printer.
func (f *Feed) SendPrintCommand(command string) error {
	switch command {
	case CommandPause, CommandResume, CommandStop:
	default:
		return fmt.Errorf("unknown printer command %q", command)
	}
	if f.client == nil || !f.client.IsConnectionOpen() {
		return fmt.Errorf("printer not connected")
	}

	payload, _ := json.Marshal(map[string]any{
		"print": map[string]any{
			"sequence_id": f.nextSeq(),
			"command":     command,
			"param":       "",
		},
	})
	tok := f.client.Publish(f.cfg.requestTopic(), 0, false, payload)
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("printer command %s timed out", command)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("printer command %s: %w", command, err)
	}
	f.log.Infow("printer command sent", "command", command)
	return nil
}

// TestConnection dials the printer once with the given credentials and
// disconnects immediately. Used by the settings UI to validate the triple
// before saving it.
func TestConnection(cfg FeedConfig) error {
	if !cfg.complete() {
		return fmt.Errorf("printer IP, access code and serial are all required")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.broker()).
		SetClientID(fmt.Sprintf("chamberctl-test-%d", time.Now().UnixNano())).
		SetUsername(brokerUsername).
		SetPassword(cfg.AccessCode).
		SetTLSConfig(&tls.Config{InsecureSkipVerify: true}).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(false)

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect timeout after %s", connectTimeout)
	}
	if err := tok.Error(); err != nil {
		return err
	}
	c.Disconnect(250)
	return nil
}
