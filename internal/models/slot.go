package models

import (
	"fmt"
	"time"
)

// Slot names the briefing window within a day.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotMidday  Slot = "midday"
	SlotEvening Slot = "evening"
)

// ParseSlot validates a slot name from user input.
func ParseSlot(raw string) (Slot, error) {
	switch Slot(raw) {
	case SlotMorning, SlotMidday, SlotEvening:
		return Slot(raw), nil
	}
	return "", fmt.Errorf("invalid slot %q: must be morning, midday, or evening", raw)
}

// CurrentSlot derives the slot from the given time: before 11:00 is morning,
// before 17:00 is midday, otherwise evening.
func CurrentSlot(now time.Time) Slot {
	switch hour := now.Hour(); {
	case hour < 11:
		return SlotMorning
	case hour < 17:
		return SlotMidday
	default:
		return SlotEvening
	}
}
