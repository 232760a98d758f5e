package protocol

import (
	"bytes"
	"encoding/json"
)

// JSONCodec is the textual codec. Enum variants are encoded by name.
type JSONCodec struct{}

func (JSONCodec) Name() string { return CodecJSON }

func (JSONCodec) EncodeTelemetry(dst []byte, p TelemetryPacket) (int, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (JSONCodec) EncodeTelemetryV1(dst []byte, p TelemetryPacketV1) (int, error) {
	encoded, err := json.Marshal(p)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (JSONCodec) DecodeTelemetry(src []byte) (Telemetry, error) {
	var w telemetryWire
	if err := strictJSON(src, &w); err != nil {
		return Telemetry{}, ErrDeserializeFailed
	}
	return w.telemetry()
}

func (JSONCodec) EncodeRequest(dst []byte, r Request) (int, error) {
	encoded, err := json.Marshal(r)
	if err != nil {
		return 0, err
	}
	return copyOut(dst, encoded)
}

func (JSONCodec) DecodeRequest(src []byte) (Request, error) {
	var w requestWire
	if err := strictJSON(src, &w); err != nil || w.Kind == nil {
		return Request{}, ErrDeserializeFailed
	}
	return Request{Kind: *w.Kind}, nil
}

func strictJSON(src []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return ErrDeserializeFailed
	}
	return nil
}
