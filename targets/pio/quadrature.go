//go:build rp2040

package pio

// PIO quadrature counter. The state machine keeps the signed count in Y and
// pushes it to the RX FIFO on every edge, so reading never stalls the
// caller.

import (
	"machine"

	"turretlink/core"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// quadratureProgram must load at offset 0: it jumps through its first 16
// words using the previous and current pin states as the index.
//
//	 0-13  jump table: jmp update | decrement | increment
//	14     decrement:  jmp y--, update
//	15     update:     mov isr, y        ; .wrap_target
//	16                 push noblock
//	17                 out isr, 2
//	18                 in pins, 2
//	19                 mov osr, isr
//	20                 mov pc, isr
//	21     increment:  mov y, ~y
//	22                 jmp y--, 23
//	23                 mov y, ~y         ; .wrap
var quadratureProgram = []uint16{
	0x000F, 0x000E, 0x0015, 0x000F,
	0x0015, 0x000F, 0x000F, 0x000E,
	0x000E, 0x000F, 0x000F, 0x0015,
	0x000F, 0x0015,
	0x008F,
	0xA0C2,
	0x8000,
	0x60C2,
	0x4002,
	0xA0E6,
	0xA0A6,
	0xA04A,
	0x0097,
	0xA04A,
}

const (
	quadratureOrigin     = 0
	quadratureWrapTarget = 15
	quadratureWrap       = 23
)

// QuadratureSensor reads an A/B encoder on two consecutive pins
type QuadratureSensor struct {
	pio     *rp2pio.PIO
	sm      rp2pio.StateMachine
	pinA    machine.Pin
	tracker core.CountTracker
	raw     uint32
}

// NewQuadratureSensor creates a sensor on the given PIO block and state machine
func NewQuadratureSensor(pioNum, smNum uint8) *QuadratureSensor {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}
	return &QuadratureSensor{
		pio: pioHW,
		sm:  pioHW.StateMachine(smNum),
	}
}

// Init loads the program and starts counting. pinA+1 is the B channel.
// clkDiv sets the sampling rate; the count is exact up to clk/(10*clkDiv)
// steps per second.
func (q *QuadratureSensor) Init(pinA machine.Pin, clkDiv uint16) error {
	q.pinA = pinA
	q.sm.TryClaim()

	offset, err := q.pio.AddProgram(quadratureProgram, quadratureOrigin)
	if err != nil {
		return err
	}

	pinA.Configure(machine.PinConfig{Mode: q.pio.PinMode()})
	(pinA + 1).Configure(machine.PinConfig{Mode: q.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(pinA)
	cfg.SetInShift(false, false, 32)
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+quadratureWrap, offset+quadratureWrapTarget)
	cfg.SetClkDivIntFrac(clkDiv, 0)

	q.sm.Init(offset, cfg)
	q.sm.SetPindirsConsecutive(pinA, 2, false)
	q.sm.SetEnabled(true)
	return nil
}

// Read drains the FIFO and reports the newest count
func (q *QuadratureSensor) Read() core.PositionSample {
	for !q.sm.IsRxFIFOEmpty() {
		q.raw = q.sm.RxGet()
	}
	return q.tracker.Observe(q.raw)
}
