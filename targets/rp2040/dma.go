//go:build rp2040

package main

import (
	"errors"
	"runtime/volatile"
	"unsafe"

	"turretlink/core"
	"turretlink/protocol"
)

// RP2040 DMA memory map
const (
	dmaBase       = 0x50000000
	dmaChanStride = 0x40
	dmaINTE0      = dmaBase + 0x404
	dmaINTS0      = dmaBase + 0x40C
	dmaCHANABORT  = dmaBase + 0x444

	// CTRL_TRIG fields
	dmaCtrlEN         = 1 << 0
	dmaCtrlHighPrio   = 1 << 1
	dmaCtrlIncrRead   = 1 << 4
	dmaCtrlIncrWrite  = 1 << 5
	dmaCtrlChainShift = 11
	dmaCtrlTreqShift  = 15
	dmaCtrlBusy       = 1 << 24
	dmaCtrlWriteError = 1 << 29
	dmaCtrlReadError  = 1 << 30
	dmaCtrlAHBError   = 1 << 31

	dreqUART0TX = 20
	dreqUART0RX = 21
)

var (
	errChannelBusy   = errors.New("dma channel busy")
	errDMABus        = errors.New("dma bus error")
	errEmptyTransfer = errors.New("dma transfer length out of range")

	dmaInte0     = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTE0)))
	dmaInts0     = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTS0)))
	dmaChanAbort = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaCHANABORT)))
)

// dmaChannelRegs is the register block of one channel
type dmaChannelRegs struct {
	READ_ADDR   volatile.Register32
	WRITE_ADDR  volatile.Register32
	TRANS_COUNT volatile.Register32
	CTRL_TRIG   volatile.Register32
	AL1_CTRL    volatile.Register32 // CTRL alias that does not trigger
}

// dmaChannel is one DMA channel paced by a UART DREQ. The RP2040 has no
// per-channel double buffering, so two buffers are swapped in software.
type dmaChannel struct {
	num    uint8
	regs   *dmaChannelRegs
	ctrl   uint32
	bufs   [2][protocol.BufSize]byte
	active int
}

func newDMAChannel(num uint8, treq uint32, incrRead, incrWrite bool) *dmaChannel {
	ctrl := uint32(dmaCtrlEN|dmaCtrlHighPrio) |
		uint32(num)<<dmaCtrlChainShift | // chaining to itself disables chaining
		treq<<dmaCtrlTreqShift
	if incrRead {
		ctrl |= dmaCtrlIncrRead
	}
	if incrWrite {
		ctrl |= dmaCtrlIncrWrite
	}
	return &dmaChannel{
		num:  num,
		regs: (*dmaChannelRegs)(unsafe.Pointer(uintptr(dmaBase + uint32(num)*dmaChanStride))),
		ctrl: ctrl,
	}
}

func (c *dmaChannel) Capacity() int {
	return protocol.BufSize
}

func (c *dmaChannel) busy() bool {
	return c.regs.CTRL_TRIG.Get()&dmaCtrlBusy != 0
}

// Pause aborts any transfer in flight
func (c *dmaChannel) Pause() {
	if !c.busy() {
		return
	}
	dmaChanAbort.Set(1 << c.num)
	for dmaChanAbort.Get()&(1<<c.num) != 0 {
	}
}

func (c *dmaChannel) ClearTransferComplete() {
	dmaInts0.Set(1 << c.num)
}

func (c *dmaChannel) TransferError() error {
	ctrl := c.regs.CTRL_TRIG.Get()
	if ctrl&dmaCtrlAHBError == 0 {
		return nil
	}
	// Error flags are write-one-to-clear
	c.regs.AL1_CTRL.Set(c.ctrl | dmaCtrlReadError | dmaCtrlWriteError)
	return errDMABus
}

func (c *dmaChannel) enableInterrupt() {
	dmaInte0.SetBits(1 << c.num)
}

func bufAddr(b []byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

// txChannel streams frames from memory into the UART TX FIFO
type txChannel struct {
	*dmaChannel
	dataReg uint32
}

func newTxChannel(num uint8, dataReg uint32) *txChannel {
	return &txChannel{dmaChannel: newDMAChannel(num, dreqUART0TX, true, false), dataReg: dataReg}
}

// NextTransferWith fills the idle buffer and starts sending it
func (t *txChannel) NextTransferWith(f core.Filler) error {
	if t.busy() {
		return errChannelBusy
	}
	idle := t.bufs[t.active^1][:]
	n := f.Fill(idle)
	if n <= 0 || n > len(idle) {
		return errEmptyTransfer
	}
	t.active ^= 1
	t.regs.READ_ADDR.Set(bufAddr(idle))
	t.regs.WRITE_ADDR.Set(t.dataReg)
	t.regs.TRANS_COUNT.Set(uint32(n))
	t.regs.CTRL_TRIG.Set(t.ctrl)
	return nil
}

// rxChannel streams bytes from the UART RX FIFO into memory
type rxChannel struct {
	*dmaChannel
	dataReg uint32
	uart    *uartPort
}

func newRxChannel(num uint8, dataReg uint32, uart *uartPort) *rxChannel {
	return &rxChannel{
		dmaChannel: newDMAChannel(num, dreqUART0RX, false, true),
		dataReg:    dataReg,
		uart:       uart,
	}
}

// Remaining reads the live transfer counter
func (r *rxChannel) Remaining() int {
	return int(r.regs.TRANS_COUNT.Get())
}

// NextTransferWith stops reception, hands the filled buffer to f and
// re-arms into the other buffer
func (r *rxChannel) NextTransferWith(f core.Filler) error {
	r.Pause()
	released := r.bufs[r.active][:]
	f.Fill(released)
	r.arm()
	return nil
}

func (r *rxChannel) arm() {
	r.active ^= 1
	buf := r.bufs[r.active][:]
	r.regs.READ_ADDR.Set(r.dataReg)
	r.regs.WRITE_ADDR.Set(bufAddr(buf))
	r.regs.TRANS_COUNT.Set(uint32(len(buf)))
	r.regs.CTRL_TRIG.Set(r.ctrl)
}

func (r *rxChannel) ClearIdle() {
	r.uart.clearReceiveTimeout()
}
