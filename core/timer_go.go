//go:build !tinygo

package core

// getSystemTicks returns the simulated clock; tests drive it with SetTime
func getSystemTicks() uint32 {
	return systemTicks
}

func setSystemTicks(ticks uint32) {
	systemTicks = ticks
}
