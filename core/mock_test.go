package core

import (
	"errors"
	"strings"

	"turretlink/protocol"
)

// MockSensor returns a fixed sample
type MockSensor struct {
	sample PositionSample
	reads  int
}

func (m *MockSensor) Read() PositionSample {
	m.reads++
	return m.sample
}

// MockTransfer is a TX DMA stream that records every armed frame
type MockTransfer struct {
	buf      []byte
	frames   [][]byte
	paused   int
	cleared  int
	armErr   error
	xferErr  error
	armPrios []Priority
	// released, when non-zero, shrinks the buffer handed to the filler
	released int
}

var errEmptyFill = errors.New("mock: zero-length transfer")

func NewMockTransfer() *MockTransfer {
	return &MockTransfer{buf: make([]byte, protocol.BufSize)}
}

func (m *MockTransfer) Capacity() int { return len(m.buf) }

func (m *MockTransfer) NextTransferWith(f Filler) error {
	if m.armErr != nil {
		return m.armErr
	}
	m.armPrios = append(m.armPrios, CurrentPriority())
	buf := m.buf
	if m.released > 0 {
		buf = buf[:m.released]
	}
	n := f.Fill(buf)
	if n <= 0 {
		return errEmptyFill
	}
	frame := make([]byte, n)
	copy(frame, m.buf[:n])
	m.frames = append(m.frames, frame)
	return nil
}

func (m *MockTransfer) Pause() { m.paused++ }

func (m *MockTransfer) ClearTransferComplete() { m.cleared++ }

func (m *MockTransfer) TransferError() error {
	err := m.xferErr
	m.xferErr = nil
	return err
}

// MockRxTransfer is an RX DMA stream. Re-arming wipes the buffer, so a
// handler that reads it after re-arm sees zeros.
type MockRxTransfer struct {
	buf         []byte
	remaining   int
	armed       int
	idleCleared int
	paused      int
	armErr      error
	xferErr     error
}

func NewMockRxTransfer() *MockRxTransfer {
	return &MockRxTransfer{buf: make([]byte, protocol.BufSize), remaining: protocol.BufSize}
}

// Deliver simulates the UART writing bytes into the armed buffer
func (m *MockRxTransfer) Deliver(data []byte) {
	used := len(m.buf) - m.remaining
	n := copy(m.buf[used:], data)
	m.remaining -= n
}

func (m *MockRxTransfer) Capacity() int { return len(m.buf) }

func (m *MockRxTransfer) Remaining() int { return m.remaining }

func (m *MockRxTransfer) NextTransferWith(f Filler) error {
	if m.armErr != nil {
		return m.armErr
	}
	f.Fill(m.buf)
	for i := range m.buf {
		m.buf[i] = 0
	}
	m.remaining = len(m.buf)
	m.armed++
	return nil
}

func (m *MockRxTransfer) Pause() { m.paused++ }

func (m *MockRxTransfer) ClearTransferComplete() {}

func (m *MockRxTransfer) TransferError() error {
	err := m.xferErr
	m.xferErr = nil
	return err
}

func (m *MockRxTransfer) ClearIdle() { m.idleCleared++ }

// MockSpawner counts spawns and can be made to reject them
type MockSpawner struct {
	spawns  int
	delays  []uint32
	failErr error
}

func (m *MockSpawner) Spawn() error {
	if m.failErr != nil {
		return m.failErr
	}
	m.spawns++
	return nil
}

func (m *MockSpawner) SpawnAfter(delay uint32) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.delays = append(m.delays, delay)
	return nil
}

// logCapture collects debug output
type logCapture struct {
	lines []string
}

func captureLog() *logCapture {
	c := &logCapture{}
	SetDebugWriter(func(s string) { c.lines = append(c.lines, s) })
	ResetDiagnostics()
	return c
}

func (c *logCapture) count(prefix string) int {
	FlushLog()
	n := 0
	for _, l := range c.lines {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}

func (c *logCapture) contains(substr string) bool {
	FlushLog()
	for _, l := range c.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// requestFrame builds a wire frame carrying req
func requestFrame(c protocol.Codec, req protocol.Request) []byte {
	var msg [protocol.MaxMessage]byte
	n, err := c.EncodeRequest(msg[:protocol.MaxPayload], req)
	if err != nil {
		panic(err)
	}
	sum := protocol.ComputeCRC(protocol.NewSoftwareCRC(), msg[:n])
	frame := make([]byte, protocol.BufSize)
	k, err := protocol.SealFrame(frame, msg[:], n, sum)
	if err != nil {
		panic(err)
	}
	return frame[:k]
}

// decodeTelemetry opens a transmitted frame and decodes its payload
func decodeTelemetry(c protocol.Codec, frame []byte) (protocol.Telemetry, error) {
	var msg [protocol.BufSize]byte
	payload, err := protocol.DecodeFrame(msg[:], frame, protocol.NewSoftwareCRC())
	if err != nil {
		return protocol.Telemetry{}, err
	}
	return c.DecodeTelemetry(payload)
}
