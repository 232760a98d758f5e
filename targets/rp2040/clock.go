//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"turretlink/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM2   = timerBase + 0x18
	timerTIMERAWL = timerBase + 0x28
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38

	alarmSample = 2 // ALARM2 drives position sampling
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm2 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM2)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
)

// GetHardwareTime reads the low 32 bits of the 1MHz timer without latching
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// InitClock points the core clock at the hardware timer
func InitClock() {
	core.TickSource = GetHardwareTime
}

// sampleAlarm fires periodically to sample the encoder
type sampleAlarm struct {
	period uint32
	next   uint32
}

var samplingAlarm sampleAlarm

// start arms the first alarm period microseconds from now
func (a *sampleAlarm) start(period uint32) {
	a.period = period
	a.next = GetHardwareTime() + period
	timerInte.SetBits(1 << alarmSample)
	timerAlarm2.Set(a.next)
}

// ack clears the interrupt and arms the next period. A late handler skips
// missed periods instead of firing back to back.
func (a *sampleAlarm) ack() {
	timerIntr.Set(1 << alarmSample)
	a.next += a.period
	now := GetHardwareTime()
	if int32(a.next-now) <= 0 {
		a.next = now + a.period
	}
	timerAlarm2.Set(a.next)
}
