package protocol

// ErrorKind classifies every per-packet and per-tick failure
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	KindNeededMoreBytes
	KindDecodeError
	KindPushFailed
	KindInvalidSenderCrc
	KindSerializeOverflow
	KindFailedDeserialize
	KindBufferOverflow
	KindFailedTelemetrySpawn
	KindDmaReconfigFailed
	KindDmaTransferFailed
	KindPayloadTooLarge
	kindCount
)

// NumKinds is the number of defined error kinds, for sizing counter tables
const NumKinds = int(kindCount)

var kindNames = [...]string{
	KindNone:                 "None",
	KindNeededMoreBytes:      "NeededMoreBytes",
	KindDecodeError:          "DecodeError",
	KindPushFailed:           "PushFailed",
	KindInvalidSenderCrc:     "InvalidSenderCrc",
	KindSerializeOverflow:    "SerializeOverflow",
	KindFailedDeserialize:    "FailedDeserialize",
	KindBufferOverflow:       "BufferOverflow",
	KindFailedTelemetrySpawn: "FailedTelemetrySpawn",
	KindDmaReconfigFailed:    "DmaReconfigFailed",
	KindDmaTransferFailed:    "DmaTransferFailed",
	KindPayloadTooLarge:      "PayloadTooLarge",
}

func (k ErrorKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// Error is a protocol failure tagged with its kind
type Error struct {
	Kind ErrorKind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

var (
	ErrNeededMoreBytes      = newError(KindNeededMoreBytes, "cobs: frame incomplete, needed more bytes")
	ErrPushFailed           = newError(KindPushFailed, "cobs: no input region supplied")
	ErrInvalidSenderCrc     = newError(KindInvalidSenderCrc, "frame checksum does not match sender CRC")
	ErrSerializeOverflow    = newError(KindSerializeOverflow, "serialized payload does not fit destination")
	ErrDeserializeFailed    = newError(KindFailedDeserialize, "payload is not a valid encoding of any known variant")
	ErrBufferOverflow       = newError(KindBufferOverflow, "received more bytes than the message size")
	ErrFailedTelemetrySpawn = newError(KindFailedTelemetrySpawn, "telemetry task could not be spawned")
	ErrDmaReconfigFailed    = newError(KindDmaReconfigFailed, "dma transfer could not be re-armed")
	ErrDmaTransferFailed    = newError(KindDmaTransferFailed, "dma transfer reported an error")
	ErrPayloadTooLarge      = newError(KindPayloadTooLarge, "payload leaves no room for the CRC trailer")
)

// DecodeError reports a COBS structural violation at a byte offset
type DecodeError struct {
	Offset int
}

func (e *DecodeError) Error() string {
	return "cobs: invalid encoding at offset " + itoa(e.Offset)
}

// maxDecodeOffset is the largest offset a DecodeError reports exactly
const maxDecodeOffset = 255

// decodeErrors are shared by every decoder so that reporting a malformed
// frame from an interrupt handler does not allocate
var decodeErrors [maxDecodeOffset + 1]DecodeError

func init() {
	for i := range decodeErrors {
		decodeErrors[i].Offset = i
	}
}

// decodeError returns the preallocated error for offset. Larger offsets
// are reported as maxDecodeOffset.
func decodeError(offset int) error {
	if offset > maxDecodeOffset {
		offset = maxDecodeOffset
	}
	return &decodeErrors[offset]
}

// KindOf extracts the ErrorKind carried by err or any error it wraps, or
// KindNone. It does not allocate.
func KindOf(err error) ErrorKind {
	for err != nil {
		switch e := err.(type) {
		case *DecodeError:
			return KindDecodeError
		case *Error:
			return e.Kind
		}
		wrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return KindNone
		}
		err = wrapper.Unwrap()
	}
	return KindNone
}

// itoa converts an integer to a string without using fmt
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	pos := len(buf)
	negative := n < 0
	if negative {
		n = -n
	}
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
