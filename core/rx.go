package core

import "turretlink/protocol"

// RxStats counts receive pipeline outcomes
type RxStats struct {
	Interrupts uint32
	Empty      uint32
	Requests   uint32
	Dropped    uint32
}

// RxPipeline handles the UART idle-line interrupt: it recovers one framed
// request from the RX DMA buffer and spawns telemetry in response
type RxPipeline struct {
	rx        RxTransfer
	crc       *ChecksumUnit
	codec     protocol.Codec
	telemetry Spawner

	stats RxStats
	last  protocol.Request

	// Scratch for one invocation, kept here so the handler does not allocate
	snapshot    [protocol.BufSize]byte
	msg         [protocol.BufSize]byte
	transferred int
	copied      int
}

// rxFill copies the received bytes out of the released buffer before the
// transfer is re-armed into it
type rxFill RxPipeline

func (f *rxFill) Fill(buf []byte) int {
	n := f.transferred
	if n > len(buf) {
		n = len(buf)
	}
	if n > len(f.snapshot) {
		n = len(f.snapshot)
	}
	if n > 0 {
		f.copied = copy(f.snapshot[:], buf[:n])
	}
	return len(buf)
}

// NewRxPipeline wires the receive path
func NewRxPipeline(rx RxTransfer, crc *ChecksumUnit, codec protocol.Codec, telemetry Spawner) *RxPipeline {
	return &RxPipeline{rx: rx, crc: crc, codec: codec, telemetry: telemetry}
}

// OnIdle is the idle-line interrupt handler. Every exit path acknowledges
// the idle flag exactly once.
func (p *RxPipeline) OnIdle() {
	defer p.rx.ClearIdle()

	p.stats.Interrupts++
	req, received, err := p.receive()
	if err != nil {
		p.stats.Dropped++
		logFault("rx", err)
		return
	}
	if !received {
		p.stats.Empty++
		return
	}

	p.stats.Requests++
	p.last = req
	RecordEvent(EvtRxRequest, uint32(req.Kind), 0)
	if err := p.telemetry.Spawn(); err != nil {
		logFault("rx spawn", protocol.ErrFailedTelemetrySpawn)
	}
}

func (p *RxPipeline) receive() (protocol.Request, bool, error) {
	transferred := p.rx.Capacity() - p.rx.Remaining()

	p.transferred, p.copied = transferred, 0
	rearmErr := p.rx.NextTransferWith((*rxFill)(p))
	copied := p.copied
	if rearmErr != nil && copied >= transferred {
		logFault("rx re-arm", protocol.ErrDmaReconfigFailed)
	}
	if err := p.rx.TransferError(); err != nil {
		logFault("rx transfer", protocol.ErrDmaTransferFailed)
	}

	if transferred <= 0 {
		return protocol.Request{}, false, nil
	}
	RecordEvent(EvtRxFrame, uint32(transferred), 0)
	if transferred > protocol.MessageSize {
		return protocol.Request{}, false, protocol.ErrBufferOverflow
	}
	if rearmErr != nil && copied < transferred {
		return protocol.Request{}, false, protocol.ErrDmaReconfigFailed
	}

	payload, senderCRC, err := protocol.OpenFrame(p.msg[:], p.snapshot[:transferred])
	if err != nil {
		return protocol.Request{}, false, err
	}
	if err := p.crc.Verify(payload, senderCRC); err != nil {
		return protocol.Request{}, false, err
	}
	req, err := p.codec.DecodeRequest(payload)
	if err != nil {
		return protocol.Request{}, false, protocol.ErrDeserializeFailed
	}
	return req, true, nil
}

// Stats returns a copy of the receive counters
func (p *RxPipeline) Stats() RxStats {
	return p.stats
}

// LastRequest returns the most recent valid request
func (p *RxPipeline) LastRequest() protocol.Request {
	return p.last
}
