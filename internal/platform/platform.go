package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-pool/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-pool/internal/schedule"
)

// DefaultSunrise is returned when the sunrise entity is missing or unparsable.
const DefaultSunrise = "06:00"

// Broker is the subset of mqtt.Client the platform uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Logger is the logging interface used by Platform.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Platform.
type Options struct {
	// QoS for commands, displays and notifications.
	QoS byte
	// Now defaults to time.Now; used for payload timestamps.
	Now func() time.Time
}

// Platform implements the controller's sensor, host, display and
// notifier ports on top of an MQTT broker.
//
// Thread Safety: All methods are safe for concurrent use.
type Platform struct {
	broker Broker
	qos    byte
	now    func() time.Time
	topics mqtt.Topics

	states   map[string]string
	statesMu sync.RWMutex

	board *Board

	subscribed []string
	startMu    sync.Mutex

	logger   Logger
	loggerMu sync.RWMutex
}

// commandPayload is published on an entity's command topic.
type commandPayload struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Service   string `json:"service"`
	EntityID  string `json:"entity_id"`
	Timestamp string `json:"timestamp"`
}

// notificationPayload is published on the notification topic.
type notificationPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// New creates a Platform publishing through broker.
func New(broker Broker, opts Options) *Platform {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Platform{
		broker: broker,
		qos:    opts.QoS,
		now:    opts.Now,
		states: make(map[string]string),
		board:  NewBoard(),
	}
}

// Start subscribes to the entity state topics. Retained messages arrive
// straight away, so the cache fills before the first controller cycle.
func (p *Platform) Start(_ context.Context) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	topic := p.topics.AllEntityStates()
	if err := p.broker.Subscribe(topic, p.qos, p.handleState); err != nil {
		return fmt.Errorf("subscribe to entity states: %w", err)
	}
	p.subscribed = append(p.subscribed, topic)
	p.logInfo("subscribed to entity states", "topic", topic)
	return nil
}

// Stop removes every subscription made by Start and SubscribeButtons.
func (p *Platform) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	for _, topic := range p.subscribed {
		if err := p.broker.Unsubscribe(topic); err != nil {
			p.logWarn("unsubscribe failed", "topic", topic, "error", err)
		}
	}
	p.subscribed = nil
}

// Board returns the in-memory status board.
func (p *Platform) Board() *Board {
	return p.board
}

// handleState caches an entity state message. The payload is either the
// raw value or a JSON object with a "state" member.
func (p *Platform) handleState(topic string, payload []byte) error {
	entityID, ok := p.topics.EntityFromStateTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected state topic %q", topic)
	}

	value, err := decodeState(payload)
	if err != nil {
		return fmt.Errorf("entity %s: %w", entityID, err)
	}

	p.statesMu.Lock()
	p.states[entityID] = value
	p.statesMu.Unlock()

	p.logDebug("entity state", "entity_id", entityID, "state", value)
	return nil
}

func decodeState(payload []byte) (string, error) {
	raw := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}

	var msg struct {
		State any `json:"state"`
	}
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return "", fmt.Errorf("decoding state payload: %w", err)
	}
	switch v := msg.State.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "on", nil
		}
		return "off", nil
	default:
		return fmt.Sprint(v), nil
	}
}

// State returns the cached state of an entity.
func (p *Platform) State(entityID string) (string, bool) {
	p.statesMu.RLock()
	defer p.statesMu.RUnlock()
	v, ok := p.states[entityID]
	return v, ok
}

// ReadBinaryState implements device.Host.
func (p *Platform) ReadBinaryState(_ context.Context, entityID string) (string, bool) {
	return p.State(entityID)
}

// ReadNumeric returns the entity's state as a number, or 0 when the entity
// is missing or its state is not a finite number.
func (p *Platform) ReadNumeric(entityID string) float64 {
	raw, ok := p.State(entityID)
	if !ok {
		p.logDebug("numeric entity has no state", "entity_id", entityID)
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		p.logWarn("entity state is not numeric", "entity_id", entityID, "state", raw)
		return 0
	}
	return v
}

// ReadSunrise returns the entity's timestamp as local "HH:MM", falling back
// to DefaultSunrise.
func (p *Platform) ReadSunrise(entityID string) string {
	raw, ok := p.State(entityID)
	if !ok {
		p.logWarn("sunrise entity has no state, using default", "entity_id", entityID, "default", DefaultSunrise)
		return DefaultSunrise
	}
	hhmm, err := schedule.ParseSunrise(raw)
	if err != nil {
		p.logWarn("sunrise not parsable, using default", "entity_id", entityID, "state", raw, "default", DefaultSunrise)
		return DefaultSunrise
	}
	return hhmm
}

// Invoke implements device.Host by publishing a command for the host.
func (p *Platform) Invoke(_ context.Context, domain, service, entityID string) error {
	data, err := json.Marshal(commandPayload{
		ID:        uuid.NewString(),
		Domain:    domain,
		Service:   service,
		EntityID:  entityID,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	if err := p.broker.Publish(p.topics.EntityCommand(entityID), data, p.qos, false); err != nil {
		return fmt.Errorf("publishing %s.%s for %s: %w", domain, service, entityID, err)
	}
	return nil
}

// Notify publishes a user notification. Failures are logged.
func (p *Platform) Notify(_ context.Context, title, message string) {
	id := uuid.NewString()
	data, err := json.Marshal(notificationPayload{
		ID:        id,
		Title:     title,
		Message:   message,
		Timestamp: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logError("encoding notification failed", "error", err)
		return
	}

	p.logInfo("notification", "title", title, "message", message)
	if err := p.broker.Publish(p.topics.Notification(id), data, p.qos, false); err != nil {
		p.logError("publishing notification failed", "title", title, "error", err)
	}
}

// SetLogger sets the logger for the platform.
func (p *Platform) SetLogger(logger Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *Platform) getLogger() Logger {
	p.loggerMu.RLock()
	defer p.loggerMu.RUnlock()
	return p.logger
}

func (p *Platform) logDebug(msg string, args ...any) {
	if l := p.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}

func (p *Platform) logInfo(msg string, args ...any) {
	if l := p.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (p *Platform) logWarn(msg string, args ...any) {
	if l := p.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

func (p *Platform) logError(msg string, args ...any) {
	if l := p.getLogger(); l != nil {
		l.Error(msg, args...)
	}
}
