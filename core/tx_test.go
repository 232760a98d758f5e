package core

import (
	"errors"
	"testing"

	"turretlink/protocol"
)

// txFixture is a telemetry task feeding a TX machine over a mock stream
type txFixture struct {
	stream    *MockTransfer
	position  *Shared[PositionSample]
	tx        *TxMachine
	telemetry *TelemetryTask
	codec     protocol.Codec
}

func newTxFixture(t *testing.T, codecName string, version protocol.ProtocolVersion) *txFixture {
	t.Helper()
	withMask(t)
	codec, err := protocol.CodecByName(codecName)
	if err != nil {
		t.Fatalf("CodecByName(%q): %v", codecName, err)
	}
	f := &txFixture{stream: NewMockTransfer(), codec: codec}
	f.position = NewShared(CeilingOf(3, 1), PositionSample{})
	f.tx = NewTxMachine(CeilingOf(1, 2), f.stream)
	crc := NewChecksumUnit(CeilingOf(1, 2), protocol.NewSoftwareCRC())
	f.telemetry = NewTelemetryTask(f.position, crc, codec, version, f.tx)
	return f
}

type failingBuilder struct {
	n   int
	err error
}

func (b failingBuilder) BuildMessage(msg []byte) (int, uint32, error) {
	return b.n, 0, b.err
}

func TestTxTickArmsOneFrame(t *testing.T) {
	captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)
	f.position.Store(PositionSample{Count: 1234, Direction: protocol.Backward})

	if f.tx.Phase() != TxIdle {
		t.Fatalf("Expected initial state Idle, got %v", f.tx.Phase())
	}
	runAt(1, f.telemetry.Emit)

	if f.tx.Phase() != TxRunning {
		t.Errorf("Expected Running after tick, got %v", f.tx.Phase())
	}
	if len(f.stream.frames) != 1 {
		t.Fatalf("Expected 1 armed frame, got %d", len(f.stream.frames))
	}
	if f.stream.armPrios[0] != 2 {
		t.Errorf("Expected arm under TX ceiling 2, got %d", f.stream.armPrios[0])
	}

	got, err := decodeTelemetry(f.codec, f.stream.frames[0])
	if err != nil {
		t.Fatalf("Transmitted frame did not decode: %v", err)
	}
	if got.Count != 1234 || got.Direction != protocol.Backward {
		t.Errorf("Expected count 1234 Backward, got %+v", got)
	}
}

func TestTxDoubleTickTransmitsOnce(t *testing.T) {
	log := captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)

	runAt(1, f.telemetry.Emit)
	runAt(1, f.telemetry.Emit)

	if len(f.stream.frames) != 1 {
		t.Errorf("Expected exactly 1 frame, got %d", len(f.stream.frames))
	}
	if f.tx.Phase() != TxRunning {
		t.Errorf("Expected Running, got %v", f.tx.Phase())
	}
	if n := log.count("[WARNING] overrun: previous transmission still in flight"); n != 1 {
		t.Errorf("Expected one overrun warning, got %d (%v)", n, log.lines)
	}
	if f.tx.Stats().Overruns != 1 {
		t.Errorf("Expected overrun counter 1, got %d", f.tx.Stats().Overruns)
	}
}

func TestTxCompletionReturnsToIdle(t *testing.T) {
	captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)

	runAt(1, f.telemetry.Emit)
	runAt(2, f.tx.OnTransferComplete)

	if f.tx.Phase() != TxIdle {
		t.Errorf("Expected Idle after completion, got %v", f.tx.Phase())
	}
	if f.stream.cleared != 1 || f.stream.paused != 1 {
		t.Errorf("Expected flag cleared and stream paused once, got cleared=%d paused=%d",
			f.stream.cleared, f.stream.paused)
	}

	runAt(1, f.telemetry.Emit)
	if len(f.stream.frames) != 2 {
		t.Errorf("Expected a second frame after completion, got %d", len(f.stream.frames))
	}
}

func TestTxCompletionWhileIdle(t *testing.T) {
	log := captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)

	runAt(2, f.tx.OnTransferComplete)

	if f.tx.Phase() != TxIdle {
		t.Errorf("Expected to stay Idle, got %v", f.tx.Phase())
	}
	if f.stream.paused != 1 {
		t.Errorf("Expected a defensive pause, got %d", f.stream.paused)
	}
	if log.count("[WARNING]") != 1 {
		t.Errorf("Expected one warning, got %v", log.lines)
	}
	if f.tx.Stats().Spurious != 1 {
		t.Errorf("Expected spurious counter 1, got %d", f.tx.Stats().Spurious)
	}
}

func TestTxBuildFailureStaysIdle(t *testing.T) {
	captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)

	tests := []struct {
		name    string
		builder MessageBuilder
		want    protocol.ErrorKind
	}{
		{"serialize overflow", failingBuilder{err: protocol.ErrSerializeOverflow}, protocol.KindSerializeOverflow},
		{"payload too large", failingBuilder{n: protocol.MaxPayload + 1}, protocol.KindPayloadTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.tx.OnTick(tt.builder)
			if protocol.KindOf(err) != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if f.tx.Phase() != TxIdle {
				t.Errorf("Expected Idle, got %v", f.tx.Phase())
			}
			if len(f.stream.frames) != 0 {
				t.Errorf("Expected no armed frames, got %d", len(f.stream.frames))
			}
		})
	}
}

func TestTxArmFailureStaysIdle(t *testing.T) {
	captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)
	f.stream.armErr = errors.New("stream busy")

	runAt(1, f.telemetry.Emit)

	if f.tx.Phase() != TxIdle {
		t.Errorf("Expected Idle after arm failure, got %v", f.tx.Phase())
	}
	if FaultCount(protocol.KindDmaReconfigFailed) != 1 {
		t.Errorf("Expected one DmaReconfigFailed, got %d", FaultCount(protocol.KindDmaReconfigFailed))
	}
}

func TestTxUnsealableFrameStaysIdle(t *testing.T) {
	captureLog()
	f := newTxFixture(t, protocol.CodecVLQ, protocol.ProtocolV2)
	f.stream.released = 3

	runAt(1, f.telemetry.Emit)

	if f.tx.Phase() != TxIdle {
		t.Errorf("Expected Idle after an empty fill, got %v", f.tx.Phase())
	}
	if len(f.stream.frames) != 0 {
		t.Errorf("Expected no armed frames, got %d", len(f.stream.frames))
	}
	if FaultCount(protocol.KindDmaReconfigFailed) != 1 {
		t.Errorf("Expected one DmaReconfigFailed, got %d", FaultCount(protocol.KindDmaReconfigFailed))
	}
	if f.tx.Stats().Armed != 0 {
		t.Errorf("Expected no arm counted, got %d", f.tx.Stats().Armed)
	}
}

func TestTxEveryCodecAndVersion(t *testing.T) {
	for _, name := range []string{protocol.CodecVLQ, protocol.CodecCBOR, protocol.CodecJSON} {
		for _, version := range []protocol.ProtocolVersion{protocol.ProtocolV1, protocol.ProtocolV2} {
			captureLog()
			f := newTxFixture(t, name, version)
			f.position.Store(PositionSample{Count: 4000, Direction: protocol.Forward})

			runAt(1, f.telemetry.Emit)
			if len(f.stream.frames) != 1 {
				t.Fatalf("%s v%d: expected 1 frame, got %d", name, version, len(f.stream.frames))
			}
			got, err := decodeTelemetry(f.codec, f.stream.frames[0])
			if err != nil {
				t.Fatalf("%s v%d: decode failed: %v", name, version, err)
			}
			if got.Version != version {
				t.Errorf("%s: expected version %d, got %d", name, version, got.Version)
			}
			if version == protocol.ProtocolV1 && got.Position != 4000 {
				t.Errorf("%s v1: expected position 4000, got %v", name, got.Position)
			}
			if version == protocol.ProtocolV2 && got.Count != 4000 {
				t.Errorf("%s v2: expected count 4000, got %d", name, got.Count)
			}
		}
	}
}
