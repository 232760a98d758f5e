//go:build rp2040

package main

import (
	"machine"

	"turretlink/core"
	"turretlink/targets/pio"

	"tinygo.org/x/drivers/encoders"
)

// encoderSensor counts quadrature edges with GPIO interrupts. It is the
// fallback when both PIO blocks are taken.
type encoderSensor struct {
	dev     *encoders.QuadratureDevice
	tracker core.CountTracker
}

func newEncoderSensor(pinA, pinB machine.Pin) (*encoderSensor, error) {
	dev := encoders.NewQuadratureViaInterrupt(pinA, pinB)
	if err := dev.Configure(encoders.QuadratureConfig{Precision: 4}); err != nil {
		return nil, err
	}
	return &encoderSensor{dev: dev}, nil
}

func (e *encoderSensor) Read() core.PositionSample {
	return e.tracker.Observe(uint32(int32(e.dev.Position())))
}

// newSensor builds the configured position sensor
func newSensor(cfg BoardConfig) (core.Sensor, error) {
	if cfg.Sensor == SensorIRQ {
		e, err := newEncoderSensor(cfg.EncoderPinA, cfg.EncoderPinA+1)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	q := pio.NewQuadratureSensor(0, 0)
	if err := q.Init(cfg.EncoderPinA, 10); err != nil {
		return nil, err
	}
	return q, nil
}
