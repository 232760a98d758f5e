package core

import "turretlink/protocol"

// TxPhase is the state of the telemetry transmit stream
type TxPhase uint8

const (
	// txTaken marks the slot while a handler holds the state
	txTaken TxPhase = iota
	// TxIdle means software owns both buffers
	TxIdle
	// TxRunning means DMA owns the active buffer
	TxRunning
)

func (p TxPhase) String() string {
	switch p {
	case TxIdle:
		return "Idle"
	case TxRunning:
		return "Running"
	}
	return "Taken"
}

// TxState pairs the phase with the transfer it governs
type TxState struct {
	Phase    TxPhase
	transfer Transfer
}

// MessageBuilder produces one unframed message: payload followed by room
// for the CRC trailer
type MessageBuilder interface {
	BuildMessage(msg []byte) (payloadLen int, checksum uint32, err error)
}

// TxStats counts transmit stream activity
type TxStats struct {
	Armed     uint32
	Completed uint32
	Overruns  uint32
	Spurious  uint32
}

// TxMachine serialises telemetry frames onto the TX DMA stream. The state is
// moved out of its slot for the duration of each handler and always put
// back before the critical section ends.
type TxMachine struct {
	ceiling Ceiling
	state   TxState
	stats   TxStats

	// Staging for the frame being armed. Handlers never allocate, so the
	// message lives here rather than on the stack.
	msg        [protocol.MaxMessage]byte
	payloadLen int
	checksum   uint32
	framed     int
}

// txFill seals the staged message into the released TX buffer
type txFill TxMachine

func (f *txFill) Fill(buf []byte) int {
	n, err := protocol.SealFrame(buf, f.msg[:], f.payloadLen, f.checksum)
	if err != nil {
		return 0
	}
	f.framed = n
	return n
}

// NewTxMachine starts the stream Idle
func NewTxMachine(ceiling Ceiling, t Transfer) *TxMachine {
	return &TxMachine{
		ceiling: ceiling,
		state:   TxState{Phase: TxIdle, transfer: t},
	}
}

func (m *TxMachine) take() TxState {
	s := m.state
	m.state = TxState{}
	return s
}

func (m *TxMachine) replace(s TxState) {
	m.state = s
}

// OnTick sends one frame built by b if the stream is Idle. A tick that
// finds the previous frame still in flight is skipped with a warning.
func (m *TxMachine) OnTick(b MessageBuilder) error {
	cs := m.ceiling.Enter()
	defer cs.Exit()

	state := m.take()
	state, err := m.tick(state, b)
	m.replace(state)
	return err
}

func (m *TxMachine) tick(state TxState, b MessageBuilder) (TxState, error) {
	if state.Phase == TxRunning {
		m.stats.Overruns++
		RecordEvent(EvtTxOverrun, m.stats.Overruns, 0)
		logWarning("overrun: previous transmission still in flight", nil)
		return state, nil
	}

	n, checksum, err := b.BuildMessage(m.msg[:])
	if err != nil {
		return state, err
	}
	if n > protocol.MaxPayload {
		return state, protocol.ErrPayloadTooLarge
	}
	if protocol.MaxEncodedLen(n+protocol.CRCSize) > state.transfer.Capacity() {
		return state, protocol.ErrSerializeOverflow
	}

	m.payloadLen, m.checksum, m.framed = n, checksum, 0
	if err := state.transfer.NextTransferWith((*txFill)(m)); err != nil {
		return state, protocol.ErrDmaReconfigFailed
	}

	m.stats.Armed++
	RecordEvent(EvtTxArmed, uint32(m.framed), checksum)
	return TxState{Phase: TxRunning, transfer: state.transfer}, nil
}

// OnTransferComplete handles the TX DMA completion interrupt
func (m *TxMachine) OnTransferComplete() {
	cs := m.ceiling.Enter()
	defer cs.Exit()

	state := m.take()
	t := state.transfer
	if err := t.TransferError(); err != nil {
		logFault("tx transfer", protocol.ErrDmaTransferFailed)
	}
	t.ClearTransferComplete()

	switch state.Phase {
	case TxRunning:
		t.Pause()
		m.stats.Completed++
		RecordEvent(EvtTxComplete, m.stats.Completed, 0)
	default:
		m.stats.Spurious++
		RecordEvent(EvtTxSpurious, 0, 0)
		logWarning("tx dma completion while idle", nil)
		t.Pause()
	}
	m.replace(TxState{Phase: TxIdle, transfer: t})
}

// Phase returns the current phase. It never observes the taken placeholder.
func (m *TxMachine) Phase() TxPhase {
	cs := m.ceiling.Enter()
	defer cs.Exit()
	return m.state.Phase
}

// Stats returns a copy of the transmit counters
func (m *TxMachine) Stats() TxStats {
	cs := m.ceiling.Enter()
	defer cs.Exit()
	return m.stats
}
