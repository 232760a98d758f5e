package main

import (
	"context"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"turretlink/host/link"
	"turretlink/protocol"
)

const pollTimeout = 2 * time.Second

func runShell(l *link.Link) error {
	sh := ishell.New()
	sh.SetPrompt("turret> ")
	for _, cmd := range shellCommands(l) {
		sh.AddCmd(cmd)
	}
	sh.Println("turret-host " + protocol.Version + ", type help for commands")
	sh.Run()
	return nil
}

func shellCommands(l *link.Link) []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name:    "telemetry",
			Aliases: []string{"t"},
			Help:    "request telemetry and print the reply",
			Func: func(c *ishell.Context) {
				ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
				defer cancel()
				t, err := l.Poll(ctx)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(formatTelemetry(t))
			},
		},
		{
			Name: "request",
			Help: "KIND  send a request without waiting (Telemetry or Default)",
			Func: func(c *ishell.Context) {
				kind := protocol.RequestTelemetry
				if len(c.Args) > 0 {
					if err := kind.UnmarshalText([]byte(c.Args[0])); err != nil {
						c.Err(err)
						return
					}
				}
				if err := l.Request(kind); err != nil {
					c.Err(err)
				}
			},
		},
		{
			Name: "watch",
			Help: "N  print the next N telemetry frames",
			Func: func(c *ishell.Context) {
				n := 1
				if len(c.Args) > 0 {
					v, err := strconv.Atoi(c.Args[0])
					if err != nil {
						c.Err(err)
						return
					}
					n = v
				}
				for i := 0; i < n; i++ {
					select {
					case t, ok := <-l.Telemetry():
						if !ok {
							c.Err(link.ErrClosed)
							return
						}
						c.Println(formatTelemetry(t))
					case <-time.After(pollTimeout):
						c.Println("timed out")
						return
					}
				}
			},
		},
		{
			Name: "stats",
			Help: "print link counters",
			Func: func(c *ishell.Context) {
				for _, line := range formatStats(l.Stats()) {
					c.Println(line)
				}
			},
		},
	}
}
