//go:build rp2040

package main

import (
	"machine"
	"runtime/volatile"
	"unsafe"
)

// PL011 UART0 registers
const (
	uart0Base = 0x40034000
	uartDR    = 0x00
	uartIBRD  = 0x24
	uartFBRD  = 0x28
	uartLCR_H = 0x2C
	uartCR    = 0x30
	uartIMSC  = 0x38
	uartICR   = 0x44
	uartDMACR = 0x48

	uartLcrFEN   = 1 << 4
	uartLcrWLEN8 = 3 << 5
	uartCrEN     = 1 << 0
	uartCrTXE    = 1 << 8
	uartCrRXE    = 1 << 9
	uartIntRT    = 1 << 6 // Receive timeout: the line went idle with data pending
	uartDmaRXE   = 1 << 0
	uartDmaTXE   = 1 << 1

	// RESETS block, atomic clear alias
	resetsBase      = 0x4000C000
	resetsClr       = resetsBase + 0x3000
	resetsDone      = resetsBase + 0x8
	resetUART0      = 1 << 22
	peripheralClock = 125000000

	irqUART0 = 20
)

// uartPort drives UART0 through DMA only; the CPU never touches the FIFOs
type uartPort struct {
	base uintptr
}

var uart0 = &uartPort{base: uart0Base}

func (u *uartPort) reg(offset uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(u.base + offset))
}

func (u *uartPort) dataAddr() uint32 {
	return uint32(u.base + uartDR)
}

// configure takes UART0 out of reset and sets 8N1 at baud with DMA and the
// receive timeout interrupt enabled
func (u *uartPort) configure(baud uint32, tx, rx machine.Pin) {
	(*volatile.Register32)(unsafe.Pointer(uintptr(resetsClr))).Set(resetUART0)
	done := (*volatile.Register32)(unsafe.Pointer(uintptr(resetsDone)))
	for done.Get()&resetUART0 == 0 {
	}

	div := 8 * peripheralClock / baud
	ibrd := div >> 7
	fbrd := ((div & 0x7F) + 1) / 2
	if ibrd == 0 {
		ibrd, fbrd = 1, 0
	} else if ibrd >= 65535 {
		ibrd, fbrd = 65535, 0
	}
	u.reg(uartIBRD).Set(ibrd)
	u.reg(uartFBRD).Set(fbrd)
	// LCR_H latches the divisor
	u.reg(uartLCR_H).Set(uartLcrWLEN8 | uartLcrFEN)
	u.reg(uartCR).Set(uartCrEN | uartCrTXE | uartCrRXE)

	tx.Configure(machine.PinConfig{Mode: machine.PinUART})
	rx.Configure(machine.PinConfig{Mode: machine.PinUART})

	u.reg(uartDMACR).Set(uartDmaRXE | uartDmaTXE)
	u.reg(uartIMSC).Set(uartIntRT)
}

func (u *uartPort) clearReceiveTimeout() {
	u.reg(uartICR).Set(uartIntRT)
}
