package core

// Filler writes the contents of the next transfer into a released buffer.
// The buffer must not be retained after Fill returns.
type Filler interface {
	// Fill returns how many bytes of buf the next transfer moves
	Fill(buf []byte) int
}

// Transfer is a double-buffered DMA transfer. While armed the active buffer
// belongs to the DMA engine; software only touches a buffer inside Fill.
type Transfer interface {
	// Capacity is the size of each buffer
	Capacity() int

	// NextTransferWith swaps buffers and re-arms. f receives the buffer DMA
	// just released. For reception the count f returns is ignored and the
	// full capacity is armed. A zero-length transmit is refused.
	NextTransferWith(f Filler) error

	// Pause stops the stream without discarding buffers
	Pause()

	// ClearTransferComplete acknowledges the completion interrupt flag
	ClearTransferComplete()

	// TransferError returns and clears any hardware error latched since the
	// last call
	TransferError() error
}

// RxTransfer is a peripheral-to-memory transfer fed by a UART with an
// idle-line interrupt
type RxTransfer interface {
	Transfer

	// Remaining is the number of bytes the active transfer still expects
	Remaining() int

	// ClearIdle acknowledges the idle-line interrupt flag
	ClearIdle()
}
