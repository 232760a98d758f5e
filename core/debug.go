package core

import "turretlink/protocol"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Event codes recorded in the event ring
const (
	EvtSample        = 1 // Position sample stored
	EvtTxArmed       = 2 // Telemetry frame handed to DMA
	EvtTxComplete    = 3 // TX DMA finished
	EvtTxOverrun     = 4 // Tick while a frame was still in flight
	EvtRxFrame       = 5 // Idle-line interrupt with bytes
	EvtRxRequest     = 6 // Valid request decoded
	EvtFault         = 7 // A per-packet or per-tick failure, Value1 is the ErrorKind
	EvtTxSpurious    = 8 // TX completion while idle
	EvtSpawnRejected = 9
)

const EventRingSize = 32

// Event is one entry of the post-mortem ring
type Event struct {
	Code   uint8
	Clock  uint32
	Value1 uint32
	Value2 uint32
}

var (
	// debugPrintln is the platform output hook, a no-op until a target sets it
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled gates DebugPrintln; queued errors and warnings bypass it
	debugEnabled bool

	eventRing     [EventRingSize]Event
	eventRingHead uint8

	faultCounts [protocol.NumKinds]uint32
	warnings    uint32

	logQueue    [LogQueueSize]logRecord
	logHead     uint8
	logLen      uint8
	logOverflow uint32
)

// LogQueueSize bounds the warnings and errors waiting for FlushLog
const LogQueueSize = 16

const (
	levelWarning uint8 = iota + 1
	levelError
)

var levelPrefix = [...]string{
	levelWarning: "[WARNING] ",
	levelError:   "[ERROR] ",
}

type logRecord struct {
	level   uint8
	context string
	err     error
}

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(s string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables informational output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// DebugPrintln writes an informational message when debug output is enabled
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln("[INFO] " + msg)
	}
}

// logWarning queues a warning. context must be a constant string: it is
// stored, not copied, and formatted later by FlushLog.
func logWarning(context string, err error) {
	warnings++
	queueLog(levelWarning, context, err)
}

// logFault counts a recoverable failure by kind and queues it for output
func logFault(context string, err error) {
	kind := protocol.KindOf(err)
	faultCounts[kind]++
	RecordEvent(EvtFault, uint32(kind), 0)
	queueLog(levelError, context, err)
}

func queueLog(level uint8, context string, err error) {
	state := disableInterrupts()
	if logLen == LogQueueSize {
		logOverflow++
	} else {
		logQueue[(logHead+logLen)%LogQueueSize] = logRecord{level: level, context: context, err: err}
		logLen++
	}
	restoreInterrupts(state)
}

// FlushLog writes queued warnings and errors to the debug writer. Handlers
// only queue records, so this runs from thread mode where formatting may
// allocate.
func FlushLog() {
	for {
		state := disableInterrupts()
		if logLen == 0 {
			restoreInterrupts(state)
			break
		}
		rec := logQueue[logHead]
		logQueue[logHead] = logRecord{}
		logHead = (logHead + 1) % LogQueueSize
		logLen--
		restoreInterrupts(state)

		line := levelPrefix[rec.level] + rec.context
		if rec.err != nil {
			line += ": " + rec.err.Error()
		}
		debugPrintln(line)
	}

	state := disableInterrupts()
	dropped := logOverflow
	logOverflow = 0
	restoreInterrupts(state)
	if dropped > 0 {
		debugPrintln("[WARNING] log queue full, " + utoa(dropped) + " records dropped")
	}
}

// FaultCount returns how many failures of kind have been logged
func FaultCount(kind protocol.ErrorKind) uint32 {
	if int(kind) >= len(faultCounts) {
		return 0
	}
	return faultCounts[kind]
}

// WarningCount returns how many warnings have been logged
func WarningCount() uint32 {
	return warnings
}

// RecordEvent captures an event in the ring buffer
func RecordEvent(code uint8, value1, value2 uint32) {
	state := disableInterrupts()
	idx := eventRingHead
	eventRing[idx] = Event{Code: code, Clock: GetTime(), Value1: value1, Value2: value2}
	eventRingHead = (idx + 1) % EventRingSize
	restoreInterrupts(state)
}

var eventNames = [...]string{
	EvtSample:        "SAMPLE",
	EvtTxArmed:       "TX_ARMED",
	EvtTxComplete:    "TX_DONE",
	EvtTxOverrun:     "TX_OVERRUN",
	EvtRxFrame:       "RX_FRAME",
	EvtRxRequest:     "RX_REQUEST",
	EvtFault:         "FAULT",
	EvtTxSpurious:    "TX_SPURIOUS",
	EvtSpawnRejected: "SPAWN_REJECTED",
}

// Events returns the recorded events, oldest first
func Events() []Event {
	out := make([]Event, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(eventRingHead+i)%EventRingSize]
		if evt.Code != 0 {
			out = append(out, evt)
		}
	}
	return out
}

// DumpEventRing writes the event ring to the debug writer
func DumpEventRing() {
	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		name := "UNKNOWN"
		if int(evt.Code) < len(eventNames) && eventNames[evt.Code] != "" {
			name = eventNames[evt.Code]
		}
		switch evt.Code {
		case EvtFault:
			debugPrintln("[EVENTS] " + name + " " + protocol.ErrorKind(evt.Value1).String() +
				" clock=" + utoa(evt.Clock))
			continue
		case EvtTxArmed:
			debugPrintln("[EVENTS] " + name + " clock=" + utoa(evt.Clock) +
				" len=" + utoa(evt.Value1) + " crc=" + hex32(evt.Value2))
			continue
		}
		debugPrintln("[EVENTS] " + name +
			" clock=" + utoa(evt.Clock) +
			" v1=" + utoa(evt.Value1) +
			" v2=" + utoa(evt.Value2))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ResetDiagnostics clears the event ring and all counters
func ResetDiagnostics() {
	for i := range eventRing {
		eventRing[i] = Event{}
	}
	eventRingHead = 0
	for i := range faultCounts {
		faultCounts[i] = 0
	}
	warnings = 0
	for i := range logQueue {
		logQueue[i] = logRecord{}
	}
	logHead, logLen, logOverflow = 0, 0, 0
}
