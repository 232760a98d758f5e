package core

import "turretlink/protocol"

// Config holds the firmware tunables. Zero fields take their defaults.
type Config struct {
	// TickPeriod is the delay between periodic telemetry frames, in timer ticks
	TickPeriod uint32
	// Periodic enables self-rescheduling telemetry; requests always trigger it
	Periodic bool

	ProtocolVersion protocol.ProtocolVersion
	Codec           string

	SamplePriority     Priority // Capture interrupt
	RxPriority         Priority // UART idle-line interrupt
	TxPriority         Priority // TX DMA completion interrupt
	TelemetryPriority  Priority // Software telemetry tasks
	DispatcherPriority Priority
}

// DefaultConfig returns the configuration the firmware ships with
func DefaultConfig() Config {
	cfg := Config{Periodic: true}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.TickPeriod == 0 {
		cfg.TickPeriod = TimerFromMS(1000)
	}
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = protocol.ProtocolV2
	}
	if cfg.Codec == "" {
		cfg.Codec = protocol.CodecVLQ
	}
	if cfg.SamplePriority == 0 {
		cfg.SamplePriority = 3
	}
	if cfg.RxPriority == 0 {
		cfg.RxPriority = 2
	}
	if cfg.TxPriority == 0 {
		cfg.TxPriority = 2
	}
	if cfg.TelemetryPriority == 0 {
		cfg.TelemetryPriority = 1
	}
	if cfg.DispatcherPriority == 0 {
		cfg.DispatcherPriority = cfg.TelemetryPriority
	}
}
