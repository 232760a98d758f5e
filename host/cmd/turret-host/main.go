// Command turret-host reads telemetry from a turret controller over a serial
// link. It can print frames, poll the device at an interval, run an
// interactive shell or republish telemetry on an MQTT broker.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/golang/glog"
	"gopkg.in/alecthomas/kingpin.v2"

	"turretlink/host/bridge"
	"turretlink/host/link"
	"turretlink/host/serial"
	"turretlink/protocol"
)

var (
	device    = kingpin.Flag("device", "Serial device path").Short('d').Required().String()
	baud      = kingpin.Flag("baud", "Baud rate").Default(strconv.Itoa(serial.DefaultBaud)).Int()
	codecName = kingpin.Flag("codec", "Payload codec the firmware was built with (vlq, cbor, json)").Default(protocol.CodecVLQ).Enum(protocol.CodecVLQ, protocol.CodecCBOR, protocol.CodecJSON)
	interval  = kingpin.Flag("interval", "Request telemetry at this interval; 0 relies on periodic emission").Default("0s").Duration()
	mqttURL   = kingpin.Flag("mqtt", "Republish telemetry to this broker, e.g. mqtt://host:1883/prefix").String()
	shell     = kingpin.Flag("shell", "Start an interactive shell").Bool()
	verbosity = kingpin.Flag("verbosity", "Log verbosity").Short('v').Default("0").Int()
)

func main() {
	kingpin.Version(protocol.Version)
	kingpin.Parse()

	flag.Set("logtostderr", "true")
	flag.Set("v", strconv.Itoa(*verbosity))
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
	codec, err := protocol.CodecByName(*codecName)
	if err != nil {
		return err
	}

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	port.Flush()

	l := link.New(port, codec)
	defer l.Close()
	glog.Infof("connected to %s at %d baud, codec %s", cfg.Device, cfg.Baud, codec.Name())

	if *shell {
		return runShell(l)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *interval > 0 {
		go pollLoop(ctx, l, *interval)
	}

	if *mqttURL == "" {
		return printLoop(ctx, l.Telemetry())
	}

	client, err := bridge.Dial(*mqttURL, l)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", *mqttURL, err)
	}
	defer client.Close()
	glog.Infof("publishing to %s", client.Topic(bridge.TopicTelemetry))
	return ignoreCanceled(client.Run(ctx, l.Telemetry()))
}

func pollLoop(ctx context.Context, l *link.Link, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Request(protocol.RequestTelemetry); err != nil {
				glog.Warningf("request telemetry: %v", err)
			}
		}
	}
}

func printLoop(ctx context.Context, ch <-chan protocol.Telemetry) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case t, ok := <-ch:
			if !ok {
				return nil
			}
			fmt.Println(formatTelemetry(t))
		}
	}
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}

func formatTelemetry(t protocol.Telemetry) string {
	if t.Version == protocol.ProtocolV1 {
		return fmt.Sprintf("v1 position=%g", t.Position)
	}
	return fmt.Sprintf("v2 count=%d direction=%s", t.Count, t.Direction)
}

func formatStats(s link.Stats) []string {
	lines := []string{
		fmt.Sprintf("frames=%d telemetry=%d dropped=%d requests=%d", s.Frames, s.Telemetry, s.Dropped, s.Requests),
	}
	for kind, n := range s.Errors {
		if n > 0 {
			lines = append(lines, fmt.Sprintf("  %s: %d", protocol.ErrorKind(kind), n))
		}
	}
	return lines
}
