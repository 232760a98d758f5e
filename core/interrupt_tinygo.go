//go:build tinygo

package core

import "runtime/interrupt"

// State is the saved interrupt enable state
type State = interrupt.State

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state State) {
	interrupt.Restore(state)
}

// globalMask raises to the ceiling by disabling every interrupt. Targets
// that can mask by priority install their own PriorityMask.
type globalMask struct{}

func (globalMask) Mask(ceiling Priority) uint32 {
	return uint32(interrupt.Disable())
}

func (globalMask) Unmask(saved uint32) {
	interrupt.Restore(interrupt.State(saved))
}
