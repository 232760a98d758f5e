//go:build rp2040

package main

import (
	"machine"

	"turretlink/core"
	"turretlink/protocol"
)

// Build-time selections, overridable with -ldflags "-X main.<name>=<value>"
var (
	sensorBackend   = "pio" // "pio" or "irq"
	codecName       = protocol.CodecVLQ
	protocolVersion = "2"
	debugOutput     = "on"
)

// Sensor backends
const (
	SensorPIO = "pio"
	SensorIRQ = "irq"
)

// BoardConfig describes the board wiring and firmware options
type BoardConfig struct {
	Sensor      string
	EncoderPinA machine.Pin // B is the next pin
	UARTTx      machine.Pin
	UARTRx      machine.Pin
	Baud        uint32
	// SamplePeriodUS is the capture alarm period
	SamplePeriodUS uint32
	Debug          bool

	Core core.Config
}

// GetBoardConfig returns the configuration for this build
func GetBoardConfig() BoardConfig {
	cfg := BoardConfig{
		Sensor:         sensorBackend,
		EncoderPinA:    machine.GPIO14,
		UARTTx:         machine.GPIO0,
		UARTRx:         machine.GPIO1,
		Baud:           115200,
		SamplePeriodUS: 1000,
		Debug:          debugOutput == "on",
		Core:           core.DefaultConfig(),
	}
	cfg.Core.Codec = codecName
	if protocolVersion == "1" {
		cfg.Core.ProtocolVersion = protocol.ProtocolV1
	}
	return cfg
}
