//go:build tinygo

package core

import "sync/atomic"

// TickSource reads the hardware timer. Targets install it at boot; until
// then the clock only moves through SetTime.
var TickSource func() uint32

func getSystemTicks() uint32 {
	if TickSource != nil {
		return TickSource()
	}
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
