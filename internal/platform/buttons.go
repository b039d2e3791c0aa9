package platform

import (
	"fmt"
)

// Presser runs a button press. PressAsync must not block.
type Presser interface {
	PressAsync(name string) error
}

// SubscribeButtons routes poolcontrol/button/{name} messages to presser.
// The payload is ignored.
func (p *Platform) SubscribeButtons(presser Presser) error {
	p.startMu.Lock()
	defer p.startMu.Unlock()

	topic := p.topics.AllButtons()
	handler := func(topic string, _ []byte) error {
		name, ok := p.topics.ButtonFromTopic(topic)
		if !ok {
			return fmt.Errorf("%w: topic %q", ErrUnknownButton, topic)
		}
		p.logInfo("button received", "button", name)
		if err := presser.PressAsync(name); err != nil {
			return fmt.Errorf("button %s: %w", name, err)
		}
		return nil
	}

	if err := p.broker.Subscribe(topic, p.qos, handler); err != nil {
		return fmt.Errorf("subscribe to buttons: %w", err)
	}
	p.subscribed = append(p.subscribed, topic)
	p.logInfo("subscribed to buttons", "topic", topic)
	return nil
}
