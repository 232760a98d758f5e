package core

import "turretlink/protocol"

// ChecksumUnit is the CRC peripheral shared by the transmit and receive
// paths. Each computation resets the accumulator, so it runs entirely under
// the ceiling.
type ChecksumUnit struct {
	ceiling Ceiling
	acc     protocol.Accumulator
}

// NewChecksumUnit wraps acc with a ceiling
func NewChecksumUnit(ceiling Ceiling, acc protocol.Accumulator) *ChecksumUnit {
	return &ChecksumUnit{ceiling: ceiling, acc: acc}
}

// Compute returns the word-aligned CRC-32 of buf
func (u *ChecksumUnit) Compute(buf []byte) uint32 {
	cs := u.ceiling.Enter()
	defer cs.Exit()
	return protocol.ComputeCRC(u.acc, buf)
}

// Verify checks payload against the sender's CRC
func (u *ChecksumUnit) Verify(payload []byte, senderCRC uint32) error {
	cs := u.ceiling.Enter()
	defer cs.Exit()
	return protocol.VerifyFrame(u.acc, payload, senderCRC)
}
