package platform

import (
	"testing"
)

func TestDisplay_PublishesRetainedOnChange(t *testing.T) {
	p, broker := startedPlatform(t)
	d := p.Display(DisplayBooster)

	d.SetStatus("Active : 05:00")
	d.SetStatus("Active : 05:00")
	d.SetStatus("Stopped")

	msgs := broker.messages()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want 2 (duplicates suppressed)", len(msgs))
	}
	for _, m := range msgs {
		if m.topic != "poolcontrol/display/booster" || !m.retained {
			t.Errorf("published %+v", m)
		}
	}
	if got, _ := p.Board().Get(DisplayBooster); got != "Stopped" {
		t.Errorf("board = %q", got)
	}
}

func TestBoard_OnChange(t *testing.T) {
	b := NewBoard()
	var changes []string
	b.SetOnChange(func(name, text string) { changes = append(changes, name+"="+text) })

	b.Set("control", "Auto Saison")
	b.Set("control", "Auto Saison")
	b.Set("backwash", "Stopped")

	if len(changes) != 2 || changes[0] != "control=Auto Saison" || changes[1] != "backwash=Stopped" {
		t.Errorf("changes = %v", changes)
	}

	snap := b.Snapshot()
	snap["control"] = "mutated"
	if got, _ := b.Get("control"); got != "Auto Saison" {
		t.Error("Snapshot should return a copy")
	}
}

func TestRepublishDisplays(t *testing.T) {
	p, broker := startedPlatform(t)
	p.Display(DisplayControl).SetStatus("Auto Saison")
	p.Display(DisplayBackwash).SetStatus("Stopped")

	p.RepublishDisplays()
	if n := len(broker.messages()); n != 4 {
		t.Errorf("published %d messages, want 4", n)
	}
}

func TestNumericDisplay(t *testing.T) {
	p, broker := startedPlatform(t)

	p.NumericDisplay("").SetNumeric(21)
	if n := len(broker.messages()); n != 0 {
		t.Fatalf("unbound numeric display published %d messages", n)
	}

	p.NumericDisplay("input_number.pool_temperature").SetNumeric(23.5)
	msgs := broker.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "poolcontrol/entity/input_number.pool_temperature/set" || msgs[0].payload != "23.5" || msgs[0].retained {
		t.Errorf("published %+v", msgs[0])
	}
}
