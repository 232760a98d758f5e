package protocol

// Codec converts between typed payloads and their wire representation.
// Encoders write into dst and return the number of bytes written, failing
// with ErrSerializeOverflow when dst is too small. Decoders take exactly the
// checksum-stripped payload region and fail with ErrDeserializeFailed.
type Codec interface {
	// Name identifies the codec in configuration
	Name() string

	EncodeTelemetry(dst []byte, p TelemetryPacket) (int, error)
	EncodeTelemetryV1(dst []byte, p TelemetryPacketV1) (int, error)
	DecodeTelemetry(src []byte) (Telemetry, error)

	EncodeRequest(dst []byte, r Request) (int, error)
	DecodeRequest(src []byte) (Request, error)
}

// Codec names
const (
	CodecVLQ  = "vlq"
	CodecCBOR = "cbor"
	CodecJSON = "json"
)

// codecs maps configuration names to constructors. Codecs that cannot be
// built for the device register themselves from build-tagged files.
var codecs = map[string]func() Codec{
	CodecVLQ:  func() Codec { return VLQCodec{} },
	CodecJSON: func() Codec { return JSONCodec{} },
}

// CodecByName returns the codec registered under name. An empty name selects
// the compact VLQ codec.
func CodecByName(name string) (Codec, error) {
	if name == "" {
		name = CodecVLQ
	}
	newCodec, ok := codecs[name]
	if !ok {
		return nil, ErrUnknownCodec
	}
	return newCodec(), nil
}

// EncodeTelemetryFor encodes the packet layout selected by version
func EncodeTelemetryFor(c Codec, version ProtocolVersion, dst []byte, count uint32, dir Direction) (int, error) {
	if version == ProtocolV1 {
		return c.EncodeTelemetryV1(dst, TelemetryPacketV1{TurretPos: float32(count)})
	}
	return c.EncodeTelemetry(dst, TelemetryPacket{TurretPos: count, TurretRot: dir})
}

// copyOut copies an encoded payload into dst, reporting overflow
func copyOut(dst, encoded []byte) (int, error) {
	if len(encoded) > len(dst) {
		return 0, ErrSerializeOverflow
	}
	return copy(dst, encoded), nil
}
