//go:build rp2040

package main

import (
	"machine"
	"runtime/interrupt"
	"time"

	"turretlink/core"
	"turretlink/protocol"
)

// Interrupt lines
const (
	irqTimer2 = 2
	irqDMA0   = 11
)

// DMA channels
const (
	chanTx = 0
	chanRx = 1
)

var (
	app  *core.App
	tx   *txChannel
	rx   *rxChannel
	idle idleDetector
)

func main() {
	cfg := GetBoardConfig()

	InitClock()
	if cfg.Debug {
		InitDebugUART()
	}

	sensor, err := newSensor(cfg)
	if err != nil {
		fatal()
	}

	uart0.configure(cfg.Baud, cfg.UARTTx, cfg.UARTRx)
	tx = newTxChannel(chanTx, uart0.dataAddr())
	rx = newRxChannel(chanRx, uart0.dataAddr(), uart0)

	app, err = core.NewApp(cfg.Core, core.Peripherals{
		Sensor: sensor,
		Tx:     tx,
		Rx:     rx,
		CRC:    protocol.NewSoftwareCRC(),
	})
	if err != nil {
		fatal()
	}

	nvicMask.bind(irqTimer2, cfg.Core.SamplePriority)
	nvicMask.bind(irqUART0, cfg.Core.RxPriority)
	nvicMask.bind(irqDMA0, cfg.Core.TxPriority)
	nvicMask.bind(irqDispatch, cfg.Core.DispatcherPriority)
	core.SetPriorityMask(&nvicMask)
	app.Dispatcher.SetPendHandler(pendDispatch)

	registerInterrupts(cfg.Core)
	rx.arm()
	tx.enableInterrupt()
	samplingAlarm.start(cfg.SamplePeriodUS)

	if err := app.Start(); err != nil {
		fatal()
	}

	// Thread mode only advances the software timer list and writes out
	// the log queue; every task runs from an interrupt
	for {
		core.ProcessTimers()
		core.FlushLog()
		time.Sleep(100 * time.Microsecond)
	}
}

func registerInterrupts(cfg core.Config) {
	sample := interrupt.New(irqTimer2, func(interrupt.Interrupt) {
		samplingAlarm.ack()
		app.Dispatcher.Run(app.SampleTask)
		idle.check()
	})
	sample.SetPriority(nvicPriority(cfg.SamplePriority))
	sample.Enable()

	recv := interrupt.New(irqUART0, func(interrupt.Interrupt) {
		app.Dispatcher.Run(app.RxTask)
	})
	recv.SetPriority(nvicPriority(cfg.RxPriority))
	recv.Enable()

	done := interrupt.New(irqDMA0, func(interrupt.Interrupt) {
		if dmaInts0.Get()&(1<<chanTx) != 0 {
			app.Dispatcher.Run(app.TxDoneTask)
		}
	})
	done.SetPriority(nvicPriority(cfg.TxPriority))
	done.Enable()

	dispatch := interrupt.New(irqDispatch, func(interrupt.Interrupt) {
		app.Dispatcher.DispatchPending()
	})
	dispatch.SetPriority(nvicPriority(cfg.DispatcherPriority))
	dispatch.Enable()
}

func pendDispatch() {
	pendIRQ(irqDispatch)
}

// idleDetector backs up the UART receive timeout. DMA keeps the RX FIFO
// drained, so the timeout may never assert; a transfer count that stops
// moving between two sample periods is treated as an idle line.
type idleDetector struct {
	lastRemaining int
}

func (d *idleDetector) check() {
	remaining := rx.Remaining()
	if remaining < rx.Capacity() && remaining == d.lastRemaining {
		pendIRQ(irqUART0)
	}
	d.lastRemaining = remaining
}

// fatal blinks the LED forever
func fatal() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}
