package core

import "turretlink/protocol"

// PositionSample is one observation of the turret encoder
type PositionSample struct {
	Count     uint32
	Direction protocol.Direction
}

// Sensor reads the quadrature counter. Read is called from the capture
// interrupt and must not block.
type Sensor interface {
	Read() PositionSample
}

// Sampler is the capture-interrupt task. It is the only writer of the
// position register.
type Sampler struct {
	sensor   Sensor
	register *Shared[PositionSample]
}

// NewSampler binds a sensor to the shared position register
func NewSampler(sensor Sensor, register *Shared[PositionSample]) *Sampler {
	return &Sampler{sensor: sensor, register: register}
}

// OnCapture reads the sensor and publishes the sample. The read happens
// outside the critical section; only the store is guarded.
func (s *Sampler) OnCapture() {
	sample := s.sensor.Read()
	s.register.Store(sample)
	RecordEvent(EvtSample, sample.Count, uint32(sample.Direction))
}

// CountTracker derives the rotation direction from successive raw counter
// values. A count that did not move keeps the last direction.
type CountTracker struct {
	last      uint32
	direction protocol.Direction
	primed    bool
}

// Observe records raw and returns the resulting sample
func (t *CountTracker) Observe(raw uint32) PositionSample {
	if t.primed {
		delta := int32(raw - t.last)
		if delta > 0 {
			t.direction = protocol.Forward
		} else if delta < 0 {
			t.direction = protocol.Backward
		}
	}
	t.last = raw
	t.primed = true
	return PositionSample{Count: raw, Direction: t.direction}
}
