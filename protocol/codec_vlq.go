package protocol

import "math"

// VLQ payload tags
const (
	tagTelemetryV1 = 0x01
	tagTelemetryV2 = 0x02
	tagRequest     = 0x10
)

// VLQCodec is the compact binary codec: a tag byte followed by Klipper VLQ
// integers, zero-padded to a whole number of 32-bit words so the checksum
// covers every byte. It never allocates, so it is safe to use from
// interrupt context.
type VLQCodec struct{}

// padWord zero-fills dst[n:] up to the next word boundary and returns the
// padded length
func padWord(dst []byte, n int) (int, error) {
	end := WordAligned(n + 3)
	if end > len(dst) {
		return 0, ErrSerializeOverflow
	}
	for i := n; i < end; i++ {
		dst[i] = 0
	}
	return end, nil
}

// validPadding reports whether src ends on a word boundary and rest, the
// bytes after the last field, is zero padding shorter than a word
func validPadding(src, rest []byte) bool {
	if len(src)%4 != 0 || len(rest) > 3 {
		return false
	}
	for _, b := range rest {
		if b != 0 {
			return false
		}
	}
	return true
}

func (VLQCodec) Name() string { return CodecVLQ }

func (VLQCodec) EncodeTelemetry(dst []byte, p TelemetryPacket) (int, error) {
	if p.TurretRot > Backward {
		return 0, ErrUnknownVariant
	}
	if len(dst) < 1 {
		return 0, ErrSerializeOverflow
	}
	dst[0] = tagTelemetryV2
	n, err := PutVLQUint(dst[1:], p.TurretPos)
	if err != nil {
		return 0, ErrSerializeOverflow
	}
	pos := 1 + n
	if pos >= len(dst) {
		return 0, ErrSerializeOverflow
	}
	dst[pos] = byte(p.TurretRot)
	return padWord(dst, pos+1)
}

func (VLQCodec) EncodeTelemetryV1(dst []byte, p TelemetryPacketV1) (int, error) {
	if len(dst) < 1 {
		return 0, ErrSerializeOverflow
	}
	dst[0] = tagTelemetryV1
	n, err := PutVLQUint(dst[1:], math.Float32bits(p.TurretPos))
	if err != nil {
		return 0, ErrSerializeOverflow
	}
	return padWord(dst, 1+n)
}

func (VLQCodec) DecodeTelemetry(src []byte) (Telemetry, error) {
	if len(src) == 0 {
		return Telemetry{}, ErrDeserializeFailed
	}
	tag := src[0]
	data := src[1:]
	value, err := DecodeVLQUint(&data)
	if err != nil {
		return Telemetry{}, ErrDeserializeFailed
	}

	switch tag {
	case tagTelemetryV1:
		if !validPadding(src, data) {
			return Telemetry{}, ErrDeserializeFailed
		}
		return Telemetry{Version: ProtocolV1, Position: math.Float32frombits(value)}, nil
	case tagTelemetryV2:
		if len(data) < 1 || Direction(data[0]) > Backward || !validPadding(src, data[1:]) {
			return Telemetry{}, ErrDeserializeFailed
		}
		return Telemetry{Version: ProtocolV2, Count: value, Direction: Direction(data[0])}, nil
	}
	return Telemetry{}, ErrDeserializeFailed
}

func (VLQCodec) EncodeRequest(dst []byte, r Request) (int, error) {
	if !r.Kind.Valid() {
		return 0, ErrUnknownVariant
	}
	if len(dst) < 1 {
		return 0, ErrSerializeOverflow
	}
	dst[0] = tagRequest
	n, err := PutVLQUint(dst[1:], uint32(r.Kind))
	if err != nil {
		return 0, ErrSerializeOverflow
	}
	return padWord(dst, 1+n)
}

func (VLQCodec) DecodeRequest(src []byte) (Request, error) {
	if len(src) == 0 || src[0] != tagRequest {
		return Request{}, ErrDeserializeFailed
	}
	data := src[1:]
	kind, err := DecodeVLQUint(&data)
	if err != nil || !validPadding(src, data) {
		return Request{}, ErrDeserializeFailed
	}
	r := Request{Kind: RequestKind(kind)}
	if !r.Kind.Valid() {
		return Request{}, ErrDeserializeFailed
	}
	return r, nil
}
