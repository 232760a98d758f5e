//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"turretlink/core"
)

// Cortex-M0+ NVIC. The M0+ has no BASEPRI, so a priority ceiling is entered
// by disabling every interrupt line bound to a task at or below it.
const (
	nvicISER = 0xE000E100
	nvicICER = 0xE000E180
	nvicISPR = 0xE000E200

	// irqDispatch is an unused vector that runs software tasks
	irqDispatch = 26
)

var (
	nvicIser = (*volatile.Register32)(unsafe.Pointer(uintptr(nvicISER)))
	nvicIcer = (*volatile.Register32)(unsafe.Pointer(uintptr(nvicICER)))
	nvicIspr = (*volatile.Register32)(unsafe.Pointer(uintptr(nvicISPR)))
)

// nvicPriority maps a task priority onto the two implemented NVIC priority
// bits, where a lower value is more urgent
func nvicPriority(p core.Priority) uint8 {
	if p == 0 {
		return 0xC0
	}
	if p >= 4 {
		return 0x00
	}
	return uint8(4-p) << 6
}

// ceilingMask implements core.PriorityMask over the NVIC enable registers
type ceilingMask struct {
	// lines[p] holds the IRQ lines bound to tasks of priority p
	lines [core.PriorityMax + 1]uint32
}

var nvicMask ceilingMask

// bind records that irq runs a task at priority p
func (m *ceilingMask) bind(irq uint32, p core.Priority) {
	m.lines[p] |= 1 << irq
}

func (m *ceilingMask) Mask(ceiling core.Priority) uint32 {
	var lines uint32
	for p := core.Priority(1); p <= ceiling && p <= core.PriorityMax; p++ {
		lines |= m.lines[p]
	}
	enabled := nvicIser.Get() & lines
	nvicIcer.Set(enabled)
	// Let the disable take effect before touching the resource
	volatile.LoadUint32((*uint32)(unsafe.Pointer(uintptr(nvicISER))))
	return enabled
}

func (m *ceilingMask) Unmask(saved uint32) {
	nvicIser.Set(saved)
}

// pendIRQ software-triggers an interrupt line
func pendIRQ(irq uint32) {
	nvicIspr.Set(1 << irq)
}
