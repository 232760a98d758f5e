package core

import "turretlink/protocol"

// TelemetryTask turns the latest position sample into a telemetry frame
type TelemetryTask struct {
	position *Shared[PositionSample]
	crc      *ChecksumUnit
	codec    protocol.Codec
	version  protocol.ProtocolVersion
	tx       *TxMachine
}

// NewTelemetryTask wires the telemetry builder to its resources
func NewTelemetryTask(position *Shared[PositionSample], crc *ChecksumUnit, codec protocol.Codec,
	version protocol.ProtocolVersion, tx *TxMachine) *TelemetryTask {
	return &TelemetryTask{
		position: position,
		crc:      crc,
		codec:    codec,
		version:  version,
		tx:       tx,
	}
}

// BuildMessage serializes the current sample into msg and checksums it
func (t *TelemetryTask) BuildMessage(msg []byte) (int, uint32, error) {
	sample := t.position.Load()

	limit := protocol.MaxPayload
	if len(msg) < limit {
		limit = len(msg)
	}
	n, err := protocol.EncodeTelemetryFor(t.codec, t.version, msg[:limit], sample.Count, sample.Direction)
	if err != nil {
		return 0, 0, err
	}
	return n, t.crc.Compute(msg[:n]), nil
}

// Emit runs one telemetry tick. Failures are logged; the next tick retries.
func (t *TelemetryTask) Emit() {
	if err := t.tx.OnTick(t); err != nil {
		logFault("telemetry", err)
	}
}

// PeriodicTelemetry emits telemetry and re-spawns itself after period
type PeriodicTelemetry struct {
	telemetry *TelemetryTask
	self      Spawner
	period    uint32
}

// NewPeriodicTelemetry binds the periodic task to its own spawner
func NewPeriodicTelemetry(t *TelemetryTask, self Spawner, period uint32) *PeriodicTelemetry {
	return &PeriodicTelemetry{telemetry: t, self: self, period: period}
}

// Run is the task handler
func (p *PeriodicTelemetry) Run() {
	p.telemetry.Emit()
	if err := p.self.SpawnAfter(p.period); err != nil {
		logWarning("periodic telemetry not rescheduled", err)
	}
}
