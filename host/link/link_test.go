package link

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"turretlink/protocol"
)

type testPort struct {
	rd *io.PipeReader
	wr *io.PipeWriter
}

func (p *testPort) Read(b []byte) (int, error)  { return p.rd.Read(b) }
func (p *testPort) Write(b []byte) (int, error) { return p.wr.Write(b) }

func (p *testPort) Close() error {
	p.rd.Close()
	return p.wr.Close()
}

// testDevice is the firmware end of a testPort
type testDevice struct {
	t     *testing.T
	codec protocol.Codec
	out   *io.PipeWriter
	in    *io.PipeReader
}

func newTestLink(t *testing.T, codec protocol.Codec) (*Link, *testDevice) {
	hostRd, devWr := io.Pipe()
	devRd, hostWr := io.Pipe()
	l := New(&testPort{rd: hostRd, wr: hostWr}, codec)
	t.Cleanup(func() {
		l.Close()
		devWr.Close()
		devRd.Close()
	})
	return l, &testDevice{t: t, codec: codec, out: devWr, in: devRd}
}

func (d *testDevice) telemetryFrame(version protocol.ProtocolVersion, count uint32, dir protocol.Direction, crcDelta uint32) []byte {
	var msg [protocol.MaxMessage]byte
	n, err := protocol.EncodeTelemetryFor(d.codec, version, msg[:protocol.MaxPayload], count, dir)
	require.NoError(d.t, err)
	crc := protocol.ComputeCRC(protocol.NewSoftwareCRC(), msg[:n]) + crcDelta
	var frame [protocol.BufSize]byte
	m, err := protocol.SealFrame(frame[:], msg[:], n, crc)
	require.NoError(d.t, err)
	return append([]byte(nil), frame[:m]...)
}

func (d *testDevice) send(data []byte) {
	go d.out.Write(data)
}

// nextRequest reads one frame written by the host and decodes it
func (d *testDevice) nextRequest() protocol.Request {
	dec := protocol.NewDecoder(protocol.MaxMessage)
	var b [1]byte
	for {
		_, err := d.in.Read(b[:])
		require.NoError(d.t, err)
		msg, err := dec.Push(b[0])
		require.NoError(d.t, err)
		if msg == nil {
			continue
		}
		payload, err := protocol.AuthenticateMessage(msg, protocol.NewSoftwareCRC())
		require.NoError(d.t, err)
		req, err := d.codec.DecodeRequest(payload)
		require.NoError(d.t, err)
		return req
	}
}

func receive(t *testing.T, l *Link) protocol.Telemetry {
	select {
	case tm, ok := <-l.Telemetry():
		require.True(t, ok, "telemetry channel closed")
		return tm
	case <-time.After(time.Second):
		require.FailNow(t, "no telemetry received")
	}
	return protocol.Telemetry{}
}

func mustCodec(t *testing.T, name string) protocol.Codec {
	c, err := protocol.CodecByName(name)
	require.NoError(t, err)
	return c
}

func TestTelemetryDecoded(t *testing.T) {
	for _, name := range []string{protocol.CodecVLQ, protocol.CodecCBOR, protocol.CodecJSON} {
		t.Run(name, func(t *testing.T) {
			l, dev := newTestLink(t, mustCodec(t, name))

			dev.send(dev.telemetryFrame(protocol.ProtocolV2, 1234, protocol.Backward, 0))
			tm := receive(t, l)
			require.Equal(t, protocol.ProtocolV2, tm.Version)
			require.Equal(t, uint32(1234), tm.Count)
			require.Equal(t, protocol.Backward, tm.Direction)

			dev.send(dev.telemetryFrame(protocol.ProtocolV1, 90, protocol.Forward, 0))
			tm = receive(t, l)
			require.Equal(t, protocol.ProtocolV1, tm.Version)
			require.InDelta(t, 90.0, tm.Position, 0.001)

			stats := l.Stats()
			require.Equal(t, uint64(2), stats.Frames)
			require.Equal(t, uint64(2), stats.Telemetry)
		})
	}
}

func TestBadChecksumDiscarded(t *testing.T) {
	l, dev := newTestLink(t, mustCodec(t, protocol.CodecCBOR))

	bad := dev.telemetryFrame(protocol.ProtocolV2, 1, protocol.Forward, 1)
	good := dev.telemetryFrame(protocol.ProtocolV2, 2, protocol.Forward, 0)
	dev.send(append(bad, good...))

	tm := receive(t, l)
	require.Equal(t, uint32(2), tm.Count)

	stats := l.Stats()
	require.Equal(t, uint64(2), stats.Frames)
	require.Equal(t, uint64(1), stats.Errors[protocol.KindInvalidSenderCrc])
}

func TestMalformedStuffingResyncs(t *testing.T) {
	l, dev := newTestLink(t, mustCodec(t, protocol.CodecVLQ))

	// Code byte promises four data bytes but the frame ends after one
	garbage := []byte{0x05, 0x01, 0x00}
	good := dev.telemetryFrame(protocol.ProtocolV2, 77, protocol.Forward, 0)
	dev.send(append(garbage, good...))

	tm := receive(t, l)
	require.Equal(t, uint32(77), tm.Count)
	require.Equal(t, uint64(1), l.Stats().Errors[protocol.KindDecodeError])
}

func TestUndecodablePayloadCounted(t *testing.T) {
	codec := mustCodec(t, protocol.CodecVLQ)
	l, dev := newTestLink(t, codec)

	// A request is a valid frame but not telemetry
	var msg [protocol.MaxMessage]byte
	n, err := codec.EncodeRequest(msg[:protocol.MaxPayload], protocol.Request{Kind: protocol.RequestDefault})
	require.NoError(t, err)
	var frame [protocol.BufSize]byte
	m, err := protocol.SealFrame(frame[:], msg[:], n, protocol.ComputeCRC(protocol.NewSoftwareCRC(), msg[:n]))
	require.NoError(t, err)

	good := dev.telemetryFrame(protocol.ProtocolV2, 5, protocol.Forward, 0)
	dev.send(append(append([]byte(nil), frame[:m]...), good...))

	tm := receive(t, l)
	require.Equal(t, uint32(5), tm.Count)
	require.Equal(t, uint64(1), l.Stats().Errors[protocol.KindFailedDeserialize])
}

func TestRequestFramed(t *testing.T) {
	for _, name := range []string{protocol.CodecVLQ, protocol.CodecCBOR, protocol.CodecJSON} {
		t.Run(name, func(t *testing.T) {
			l, dev := newTestLink(t, mustCodec(t, name))

			got := make(chan protocol.Request, 1)
			go func() { got <- dev.nextRequest() }()

			require.NoError(t, l.Request(protocol.RequestTelemetry))
			select {
			case req := <-got:
				require.Equal(t, protocol.RequestTelemetry, req.Kind)
			case <-time.After(time.Second):
				require.FailNow(t, "device saw no request")
			}
			require.Equal(t, uint64(1), l.Stats().Requests)
		})
	}
}

func TestPoll(t *testing.T) {
	l, dev := newTestLink(t, mustCodec(t, protocol.CodecVLQ))

	go func() {
		req := dev.nextRequest()
		if req.Kind == protocol.RequestTelemetry {
			dev.out.Write(dev.telemetryFrame(protocol.ProtocolV2, 4096, protocol.Forward, 0))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tm, err := l.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, uint32(4096), tm.Count)
}

func TestPollTimeout(t *testing.T) {
	l, dev := newTestLink(t, mustCodec(t, protocol.CodecVLQ))
	go dev.nextRequest()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Poll(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClose(t *testing.T) {
	l, _ := newTestLink(t, mustCodec(t, protocol.CodecVLQ))

	require.NoError(t, l.Close())
	_, ok := <-l.Telemetry()
	require.False(t, ok)
	require.ErrorIs(t, l.Request(protocol.RequestTelemetry), ErrClosed)
	require.NoError(t, l.Close())
}
