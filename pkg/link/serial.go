package link

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// SerialConfig configures a serial radio.
type SerialConfig struct {
	// Device path, e.g. /dev/ttyUSB0.
	Device string
	Baud   int
	// ReadTimeout bounds a single Read; the driver rounds it to 100ms steps.
	ReadTimeout time.Duration
}

// Defaults of the radio UART.
const (
	DefaultDevice      = "/dev/ttyUSB0"
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
)

type serialPort struct {
	port *serial.Port
}

// OpenSerial opens a serial radio.
func OpenSerial(cfg *SerialConfig) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, fmt.Errorf("serial device not specified")
	}
	baud := cfg.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return &serialPort{port: port}, nil
}

// Read implements io.Reader. A read timeout surfaces as io.EOF from
// the driver and is reported as no data.
func (p *serialPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if n == 0 && err == io.EOF {
		return 0, nil
	}
	return n, err
}

func (p *serialPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *serialPort) Close() error {
	return p.port.Close()
}
