package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"navcore/host/console"
	"navcore/host/monitor"
	"navcore/host/serial"
	"navcore/m8q"
)

var (
	device   = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud     = flag.Int("baud", 9600, "Baud rate")
	mode     = flag.String("mode", "console", "Operating mode: console or monitor")
	broker   = flag.String("broker", "tcp://localhost:1883", "MQTT broker URL (monitor mode)")
	topic    = flag.String("topic", monitor.DefaultTopic, "MQTT topic for position reports")
	interval = flag.Duration("interval", 200*time.Millisecond, "Poll interval (monitor mode)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()
	fmt.Printf("Connected to %s at %d baud\n", cfg.Device, cfg.Baud)

	dev, err := m8q.NewDevice(1, serial.NewBus(port))
	if err != nil {
		return err
	}

	switch *mode {
	case "console":
		return console.New(dev, os.Stdin, os.Stdout).Run()

	case "monitor":
		pub, err := monitor.ConnectMQTT(*broker, "m8qhost-monitor")
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = monitor.New(dev, pub, *topic).Run(ctx, *interval)
		if err == context.Canceled {
			return nil
		}
		return err

	default:
		return fmt.Errorf("unknown mode %q (want console or monitor)", *mode)
	}
}
