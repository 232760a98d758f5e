package core

import (
	"errors"

	"turretlink/protocol"
)

// Peripherals are the hardware collaborators a target hands to the app
type Peripherals struct {
	Sensor Sensor
	Tx     Transfer
	Rx     RxTransfer
	CRC    protocol.Accumulator
}

// App is the assembled firmware: the task table plus the resources the
// tasks share
type App struct {
	Config     Config
	Dispatcher *Dispatcher

	Position *Shared[PositionSample]
	CRC      *ChecksumUnit
	Sampler  *Sampler
	Tx       *TxMachine
	Rx       *RxPipeline

	Telemetry *TelemetryTask
	Periodic  *PeriodicTelemetry

	SampleTask    TaskID
	RxTask        TaskID
	TxDoneTask    TaskID
	PeriodicTask  TaskID
	TelemetryTask TaskID
}

var errMissingPeripheral = errors.New("missing peripheral")

// NewApp builds the task table and computes every resource ceiling from the
// priorities of the tasks that touch it
func NewApp(cfg Config, p Peripherals) (*App, error) {
	applyDefaults(&cfg)
	if p.Sensor == nil || p.Tx == nil || p.Rx == nil || p.CRC == nil {
		return nil, errMissingPeripheral
	}
	codec, err := protocol.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}

	positionCeiling := CeilingOf(cfg.SamplePriority, cfg.TelemetryPriority)
	txCeiling := CeilingOf(cfg.TelemetryPriority, cfg.TxPriority)
	crcCeiling := CeilingOf(cfg.TelemetryPriority, cfg.RxPriority)

	a := &App{Config: cfg, Dispatcher: NewDispatcher()}
	a.Position = NewShared(positionCeiling, PositionSample{})
	a.CRC = NewChecksumUnit(crcCeiling, p.CRC)
	a.Sampler = NewSampler(p.Sensor, a.Position)
	a.Tx = NewTxMachine(txCeiling, p.Tx)
	a.Telemetry = NewTelemetryTask(a.Position, a.CRC, codec, cfg.ProtocolVersion, a.Tx)

	tasks := []struct {
		id *TaskID
		t  Task
	}{
		{&a.SampleTask, Task{Name: "sample_position", Priority: cfg.SamplePriority, Binding: BindHardware, Handler: a.Sampler.OnCapture}},
		{&a.RxTask, Task{Name: "receive_request", Priority: cfg.RxPriority, Binding: BindHardware}},
		{&a.TxDoneTask, Task{Name: "tx_complete", Priority: cfg.TxPriority, Binding: BindHardware, Handler: a.Tx.OnTransferComplete}},
		{&a.PeriodicTask, Task{Name: "periodic_emit_status", Priority: cfg.TelemetryPriority, Binding: BindSoftware}},
		{&a.TelemetryTask, Task{Name: "write_telemetry", Priority: cfg.TelemetryPriority, Binding: BindSoftware, Handler: a.Telemetry.Emit}},
	}
	for _, entry := range tasks {
		id, err := a.Dispatcher.Register(entry.t)
		if err != nil {
			return nil, err
		}
		*entry.id = id
	}

	a.Rx = NewRxPipeline(p.Rx, a.CRC, codec, a.Dispatcher.Spawner(a.TelemetryTask))
	a.Periodic = NewPeriodicTelemetry(a.Telemetry, a.Dispatcher.Spawner(a.PeriodicTask), cfg.TickPeriod)
	a.Dispatcher.slots[a.RxTask].Handler = a.Rx.OnIdle
	a.Dispatcher.slots[a.PeriodicTask].Handler = a.Periodic.Run
	a.Dispatcher.Seal()
	return a, nil
}

// Start kicks off the periodic telemetry chain
func (a *App) Start() error {
	DebugPrintln("turretlink " + protocol.Version + " codec=" + a.Config.Codec +
		" protocol=v" + utoa(uint32(a.Config.ProtocolVersion)))
	if !a.Config.Periodic {
		return nil
	}
	return a.Dispatcher.Spawn(a.PeriodicTask)
}

// Poll fires due timers, drains pending software tasks and writes out
// queued log records. Targets without a spare dispatcher interrupt call it
// from the main loop.
func (a *App) Poll() int {
	ProcessTimers()
	n := a.Dispatcher.DispatchPending()
	FlushLog()
	return n
}
