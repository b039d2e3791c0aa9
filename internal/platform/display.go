package platform

import (
	"maps"
	"strconv"
	"sync"
)

// Display names, as used in poolcontrol/display/{name}.
const (
	DisplayControl            = "control"
	DisplayFiltrationTime     = "filtration_time"
	DisplayFiltrationSchedule = "filtration_schedule"
	DisplayFiltration         = "filtration"
	DisplayBooster            = "booster"
	DisplayBackwash           = "backwash"
)

// Board holds the latest text of every status display.
type Board struct {
	mu       sync.RWMutex
	texts    map[string]string
	onChange func(name, text string)
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{texts: make(map[string]string)}
}

// Set stores text for name and reports whether it changed. The change
// callback runs outside the lock.
func (b *Board) Set(name, text string) bool {
	b.mu.Lock()
	if old, ok := b.texts[name]; ok && old == text {
		b.mu.Unlock()
		return false
	}
	b.texts[name] = text
	callback := b.onChange
	b.mu.Unlock()

	if callback != nil {
		callback(name, text)
	}
	return true
}

// Get returns the text for name.
func (b *Board) Get(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	text, ok := b.texts[name]
	return text, ok
}

// Snapshot returns a copy of every display text.
func (b *Board) Snapshot() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.texts)
}

// SetOnChange registers fn to run whenever a text changes.
func (b *Board) SetOnChange(fn func(name, text string)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Display is a named status text published retained on MQTT.
type Display struct {
	name string
	p    *Platform
}

// Display returns the handle for a named status display.
func (p *Platform) Display(name string) *Display {
	return &Display{name: name, p: p}
}

// Name returns the display name.
func (d *Display) Name() string { return d.name }

// SetStatus records text on the board and publishes it when it changed.
func (d *Display) SetStatus(text string) {
	if !d.p.board.Set(d.name, text) {
		return
	}
	topic := d.p.topics.Display(d.name)
	if err := d.p.broker.Publish(topic, []byte(text), d.p.qos, true); err != nil {
		d.p.logWarn("publishing display failed", "display", d.name, "error", err)
	}
}

// NumericDisplay writes a number to a host entity, such as an
// input_number showing the pool temperature.
type NumericDisplay struct {
	entityID string
	p        *Platform
}

// NumericDisplay returns the handle for entityID. An empty entityID gives
// a handle that does nothing.
func (p *Platform) NumericDisplay(entityID string) *NumericDisplay {
	return &NumericDisplay{entityID: entityID, p: p}
}

// SetNumeric publishes v on the entity's set topic.
func (d *NumericDisplay) SetNumeric(v float64) {
	if d.entityID == "" {
		return
	}
	payload := strconv.FormatFloat(v, 'f', -1, 64)
	if err := d.p.broker.Publish(d.p.topics.EntitySet(d.entityID), []byte(payload), d.p.qos, false); err != nil {
		d.p.logWarn("publishing numeric display failed", "entity_id", d.entityID, "error", err)
	}
}

// RepublishDisplays publishes every board text again. Call it after a
// broker reconnect; retained messages may have been lost.
func (p *Platform) RepublishDisplays() {
	for name, text := range p.board.Snapshot() {
		if err := p.broker.Publish(p.topics.Display(name), []byte(text), p.qos, true); err != nil {
			p.logWarn("republishing display failed", "display", name, "error", err)
		}
	}
}
