//go:build rp2040

package main

import (
	"machine"

	"turretlink/core"
)

var debugUART *machine.UART

// InitDebugUART routes core diagnostics to UART1 on GPIO4 (TX) and GPIO5 (RX)
// at 115200 baud. UART0 carries the telemetry link.
func InitDebugUART() {
	debugUART = machine.UART1
	err := debugUART.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GPIO4,
		RX:       machine.GPIO5,
	})
	if err != nil {
		debugUART = nil
		return
	}
	core.SetDebugWriter(debugWrite)
}

func debugWrite(s string) {
	if debugUART == nil {
		return
	}
	debugUART.Write([]byte(s))
	debugUART.Write([]byte("\r\n"))
}
