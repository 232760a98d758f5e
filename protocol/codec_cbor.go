//go:build !tinygo

package protocol

import (
	"github.com/fxamacker/cbor/v2"
)

func init() {
	codecs[CodecCBOR] = func() Codec { return NewCBORCodec() }
}

// CBORCodec encodes payloads as CBOR maps keyed by field name, with enum
// variants as text strings. Floats use the shortest lossless width.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec creates a CBORCodec
func NewCBORCodec() *CBORCodec {
	enc, err := cbor.EncOptions{ShortestFloat: cbor.ShortestFloat16}.EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &CBORCodec{enc: enc, dec: dec}
}

func (c *CBORCodec) Name() string { return CodecCBOR }

func (c *CBORCodec) EncodeTelemetry(dst []byte, p TelemetryPacket) (int, error) {
	encoded, err := c.enc.Marshal(p)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (c *CBORCodec) EncodeTelemetryV1(dst []byte, p TelemetryPacketV1) (int, error) {
	encoded, err := c.enc.Marshal(p)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (c *CBORCodec) DecodeTelemetry(src []byte) (Telemetry, error) {
	var w telemetryWire
	if err := c.dec.Unmarshal(src, &w); err != nil {
		return Telemetry{}, ErrDeserializeFailed
	}
	return w.telemetry()
}

func (c *CBORCodec) EncodeRequest(dst []byte, r Request) (int, error) {
	encoded, err := c.enc.Marshal(r)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (c *CBORCodec) DecodeRequest(src []byte) (Request, error) {
	var w requestWire
	if err := c.dec.Unmarshal(src, &w); err != nil || w.Kind == nil {
		return Request{}, ErrDeserializeFailed
	}
	return Request{Kind: *w.Kind}, nil
}

// MarshalCBOR encodes the direction as its variant name
func (d Direction) MarshalCBOR() ([]byte, error) {
	text, err := d.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(text))
}

// UnmarshalCBOR decodes a variant name
func (d *Direction) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return ErrDeserializeFailed
	}
	return d.UnmarshalText([]byte(s))
}

// MarshalCBOR encodes the kind as its variant name
func (k RequestKind) MarshalCBOR() ([]byte, error) {
	text, err := k.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(text))
}

// UnmarshalCBOR decodes a variant name
func (k *RequestKind) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return ErrDeserializeFailed
	}
	return k.UnmarshalText([]byte(s))
}
