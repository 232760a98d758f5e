package core

import (
	"testing"

	"turretlink/protocol"
)

func TestCountTrackerDirection(t *testing.T) {
	var tr CountTracker
	steps := []struct {
		raw  uint32
		want protocol.Direction
	}{
		{100, protocol.Forward},
		{105, protocol.Forward},
		{105, protocol.Forward},
		{90, protocol.Backward},
		{90, protocol.Backward},
		{0xFFFFFFFE, protocol.Backward},
		{1, protocol.Forward}, // wraps forward past zero
	}
	for i, s := range steps {
		got := tr.Observe(s.raw)
		if got.Count != s.raw || got.Direction != s.want {
			t.Errorf("step %d: Observe(%d) = %+v, want direction %v", i, s.raw, got, s.want)
		}
	}
}

func TestSamplerPublishes(t *testing.T) {
	withMask(t)
	sensor := &MockSensor{sample: PositionSample{Count: 7, Direction: protocol.Backward}}
	reg := NewShared(CeilingOf(3, 1), PositionSample{})
	s := NewSampler(sensor, reg)

	runAt(3, s.OnCapture)

	if sensor.reads != 1 {
		t.Errorf("Expected one sensor read, got %d", sensor.reads)
	}
	if got := reg.Load(); got != sensor.sample {
		t.Errorf("Register holds %+v, want %+v", got, sensor.sample)
	}
}
