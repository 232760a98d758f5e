//go:build !tinygo

package core

// State is a placeholder for interrupt state on regular Go
type State uintptr

// disableInterrupts is a no-op on regular Go (for testing)
func disableInterrupts() State {
	return 0
}

// restoreInterrupts is a no-op on regular Go (for testing)
func restoreInterrupts(state State) {
	// No-op
}

// globalMask stands in for interrupt masking on regular Go. Tasks are driven
// synchronously by tests, so only the priority bookkeeping matters.
type globalMask struct{}

func (globalMask) Mask(ceiling Priority) uint32 { return 0 }

func (globalMask) Unmask(saved uint32) {}
