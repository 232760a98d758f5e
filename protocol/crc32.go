package protocol

import (
	"encoding/binary"

	"github.com/snksoft/crc"
)

// CRC32Params describes the checksum used on the wire. It is the CRC unit found
// on STM32 parts: polynomial 0x04C11DB7 fed MSB-first, 32-bit words, no
// reflection and no final XOR (CRC-32/MPEG-2 over the word-aligned bytes).
var CRC32Params = &crc.Parameters{
	Width:      32,
	Polynomial: 0x04C11DB7,
	ReflectIn:  false,
	ReflectOut: false,
	Init:       0xFFFFFFFF,
	FinalXor:   0x00000000,
}

// Accumulator is a stateful word-oriented CRC-32 unit. Init must be called
// before every independent computation or results chain across buffers.
type Accumulator interface {
	// Init resets the accumulator to the initial value
	Init()

	// Update folds one word into the accumulator and returns the running CRC
	Update(word uint32) uint32
}

// SoftwareCRC implements Accumulator in software
type SoftwareCRC struct {
	hash *crc.Hash
}

// NewSoftwareCRC creates an accumulator in its initial state
func NewSoftwareCRC() *SoftwareCRC {
	return &SoftwareCRC{hash: crc.NewHash(CRC32Params)}
}

func (s *SoftwareCRC) Init() {
	s.hash.Reset()
}

func (s *SoftwareCRC) Update(word uint32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], word)
	s.hash.Update(b[:])
	return uint32(s.hash.CRC())
}

// WordAligned returns the largest multiple of four not greater than n
func WordAligned(n int) int {
	return n &^ 3
}

// ComputeCRC resets acc and checksums the word-aligned prefix of buf.
// The trailing 0-3 bytes that do not fill a word are excluded.
func ComputeCRC(acc Accumulator, buf []byte) uint32 {
	acc.Init()
	result := uint32(0xFFFFFFFF)
	n := WordAligned(len(buf))
	for i := 0; i < n; i += 4 {
		result = acc.Update(binary.BigEndian.Uint32(buf[i : i+4]))
	}
	return result
}
