// Package link talks to the turret controller over a byte stream. It sends
// framed requests and decodes the telemetry frames the device emits.
package link

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"turretlink/protocol"
)

// ErrClosed is returned by operations on a closed Link
var ErrClosed = errors.New("link closed")

// telemetryQueue bounds the decoded frames waiting for a reader. Frames that
// arrive while the queue is full are dropped.
const telemetryQueue = 16

// Stats counts link traffic. Errors is indexed by protocol.ErrorKind.
type Stats struct {
	Frames    uint64
	Telemetry uint64
	Dropped   uint64
	Requests  uint64
	Errors    [protocol.NumKinds]uint64
}

// Link is the host end of a turret connection
type Link struct {
	port  io.ReadWriteCloser
	codec protocol.Codec

	// rxCRC is owned by readLoop, txCRC by writers holding writeMutex
	rxCRC protocol.Accumulator
	txCRC protocol.Accumulator

	writeMutex sync.Mutex

	telemetry chan protocol.Telemetry

	frames    uint64
	decoded   uint64
	dropped   uint64
	requests  uint64
	errCounts [protocol.NumKinds]uint64

	closed   uint32
	stopChan chan struct{}
	doneChan chan struct{}
}

// New starts reading frames from port. The codec must match the one the
// firmware was built with.
func New(port io.ReadWriteCloser, codec protocol.Codec) *Link {
	l := &Link{
		port:      port,
		codec:     codec,
		rxCRC:     protocol.NewSoftwareCRC(),
		txCRC:     protocol.NewSoftwareCRC(),
		telemetry: make(chan protocol.Telemetry, telemetryQueue),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
	go l.readLoop()
	return l
}

// Codec returns the payload codec in use
func (l *Link) Codec() protocol.Codec {
	return l.codec
}

// Telemetry delivers decoded telemetry. It is closed when the link stops.
func (l *Link) Telemetry() <-chan protocol.Telemetry {
	return l.telemetry
}

// Request sends one framed request to the device
func (l *Link) Request(kind protocol.RequestKind) error {
	if atomic.LoadUint32(&l.closed) != 0 {
		return ErrClosed
	}

	l.writeMutex.Lock()
	defer l.writeMutex.Unlock()

	var msg [protocol.MaxMessage]byte
	n, err := l.codec.EncodeRequest(msg[:protocol.MaxPayload], protocol.Request{Kind: kind})
	if err != nil {
		return err
	}
	var frame [protocol.BufSize]byte
	m, err := protocol.SealFrame(frame[:], msg[:], n, protocol.ComputeCRC(l.txCRC, msg[:n]))
	if err != nil {
		return err
	}
	if _, err := l.port.Write(frame[:m]); err != nil {
		return err
	}
	atomic.AddUint64(&l.requests, 1)
	glog.V(2).Infof("sent %s request (%d bytes)", kind, m)
	return nil
}

// Poll requests telemetry and waits for the next decoded frame
func (l *Link) Poll(ctx context.Context) (protocol.Telemetry, error) {
	if err := l.Request(protocol.RequestTelemetry); err != nil {
		return protocol.Telemetry{}, err
	}
	select {
	case t, ok := <-l.telemetry:
		if !ok {
			return protocol.Telemetry{}, ErrClosed
		}
		return t, nil
	case <-ctx.Done():
		return protocol.Telemetry{}, ctx.Err()
	}
}

// Stats returns a snapshot of the link counters
func (l *Link) Stats() Stats {
	s := Stats{
		Frames:    atomic.LoadUint64(&l.frames),
		Telemetry: atomic.LoadUint64(&l.decoded),
		Dropped:   atomic.LoadUint64(&l.dropped),
		Requests:  atomic.LoadUint64(&l.requests),
	}
	for i := range l.errCounts {
		s.Errors[i] = atomic.LoadUint64(&l.errCounts[i])
	}
	return s
}

// Close stops the read loop and closes the port
func (l *Link) Close() error {
	if !atomic.CompareAndSwapUint32(&l.closed, 0, 1) {
		return nil
	}
	close(l.stopChan)
	err := l.port.Close()
	<-l.doneChan
	return err
}

func (l *Link) stopping() bool {
	select {
	case <-l.stopChan:
		return true
	default:
		return false
	}
}

func (l *Link) readLoop() {
	defer close(l.doneChan)
	defer close(l.telemetry)

	decoder := protocol.NewDecoder(protocol.MaxMessage)
	buffer := make([]byte, 256)

	for {
		n, err := l.port.Read(buffer)
		for _, b := range buffer[:n] {
			msg, perr := decoder.Push(b)
			if perr != nil {
				l.countError(perr)
				continue
			}
			if msg != nil {
				l.handleMessage(msg)
			}
		}
		if err == nil {
			continue
		}
		if l.stopping() {
			return
		}
		// tarm/serial reports a read timeout as EOF
		if !errors.Is(err, io.EOF) {
			glog.Warningf("serial read failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (l *Link) handleMessage(msg []byte) {
	atomic.AddUint64(&l.frames, 1)
	payload, err := protocol.AuthenticateMessage(msg, l.rxCRC)
	if err != nil {
		l.countError(err)
		return
	}
	t, err := l.codec.DecodeTelemetry(payload)
	if err != nil {
		l.countError(err)
		return
	}
	atomic.AddUint64(&l.decoded, 1)

	select {
	case l.telemetry <- t:
	default:
		atomic.AddUint64(&l.dropped, 1)
		glog.Warningf("telemetry queue full, dropping frame")
	}
}

func (l *Link) countError(err error) {
	kind := protocol.KindOf(err)
	atomic.AddUint64(&l.errCounts[kind], 1)
	glog.V(1).Infof("discarding frame: %v", err)
}
