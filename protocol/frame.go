package protocol

import "encoding/binary"

// SealFrame appends checksum to the payload held in msg[:payloadLen] and
// stuffs payload ++ crc32_be(payload) into dst. msg must have room for the
// trailer. It returns the number of bytes written to dst.
func SealFrame(dst, msg []byte, payloadLen int, checksum uint32) (int, error) {
	if payloadLen > MaxPayload || payloadLen+CRCSize > len(msg) {
		return 0, ErrPayloadTooLarge
	}
	binary.BigEndian.PutUint32(msg[payloadLen:payloadLen+CRCSize], checksum)
	if len(dst) < MaxEncodedLen(payloadLen+CRCSize) {
		return 0, ErrSerializeOverflow
	}
	return Encode(dst, msg[:payloadLen+CRCSize]), nil
}

// OpenFrame unstuffs the frame in src into dst and splits the result into the
// payload and the CRC the sender appended. The payload aliases dst.
func OpenFrame(dst, src []byte) (payload []byte, senderCRC uint32, err error) {
	n, _, err := Decode(dst, src)
	if err != nil {
		return nil, 0, err
	}
	if n < CRCSize {
		return nil, 0, ErrInvalidSenderCrc
	}
	split := n - CRCSize
	return dst[:split], binary.BigEndian.Uint32(dst[split:n]), nil
}

// VerifyFrame recomputes the checksum of payload and compares it with the
// sender's. It returns ErrInvalidSenderCrc on mismatch.
func VerifyFrame(acc Accumulator, payload []byte, senderCRC uint32) error {
	if ComputeCRC(acc, payload) != senderCRC {
		return ErrInvalidSenderCrc
	}
	return nil
}

// DecodeFrame unstuffs and authenticates one frame, returning its payload
func DecodeFrame(dst, src []byte, acc Accumulator) ([]byte, error) {
	payload, senderCRC, err := OpenFrame(dst, src)
	if err != nil {
		return nil, err
	}
	if err := VerifyFrame(acc, payload, senderCRC); err != nil {
		return nil, err
	}
	return payload, nil
}

// AuthenticateMessage splits an already unstuffed message into payload and
// trailer and verifies the checksum
func AuthenticateMessage(msg []byte, acc Accumulator) ([]byte, error) {
	if len(msg) < CRCSize {
		return nil, ErrInvalidSenderCrc
	}
	split := len(msg) - CRCSize
	payload := msg[:split]
	if err := VerifyFrame(acc, payload, binary.BigEndian.Uint32(msg[split:])); err != nil {
		return nil, err
	}
	return payload, nil
}
