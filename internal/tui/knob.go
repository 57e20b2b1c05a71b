package tui

import "sync"

const knobMax = 1023

// Knob is a duration selector driven from the keyboard. The runner reads it
// only when a cycle starts, so changes apply on the next flip.
type Knob struct {
	mu      sync.Mutex
	reading int
}

func NewKnob(reading int) *Knob {
	k := &Knob{}
	k.Set(reading)
	return k
}

func (k *Knob) Reading() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.reading
}

func (k *Knob) Set(reading int) {
	k.mu.Lock()
	k.reading = min(max(reading, 0), knobMax)
	k.mu.Unlock()
}

func (k *Knob) Nudge(delta int) { k.Set(k.Reading() + delta) }
