package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"turretlink/host/link"
	"turretlink/protocol"
)

func TestFormatTelemetry(t *testing.T) {
	assert.Equal(t, "v2 count=42 direction=Backward", formatTelemetry(protocol.Telemetry{
		Version: protocol.ProtocolV2, Count: 42, Direction: protocol.Backward,
	}))
	assert.Equal(t, "v1 position=1.5", formatTelemetry(protocol.Telemetry{
		Version: protocol.ProtocolV1, Position: 1.5,
	}))
}

func TestFormatStats(t *testing.T) {
	var s link.Stats
	s.Frames = 3
	s.Telemetry = 2
	s.Errors[protocol.KindInvalidSenderCrc] = 1

	assert.Equal(t, []string{
		"frames=3 telemetry=2 dropped=0 requests=0",
		"  InvalidSenderCrc: 1",
	}, formatStats(s))
}

func TestShellCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range shellCommands(nil) {
		names[cmd.Name] = true
		assert.NotNil(t, cmd.Func, cmd.Name)
	}
	for _, want := range []string{"telemetry", "request", "watch", "stats"} {
		assert.True(t, names[want], want)
	}
}
