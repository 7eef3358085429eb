package link

import (
	"io"
	"strings"
	"time"
)

// Port is an opened radio channel. Read returns (0, nil) when no
// data arrived within the port's read timeout.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a Port.
type Opener func() (Port, error)

// PortOpener returns an Opener for addr: ws:// and wss:// URLs dial a
// radio simulator, anything else is a serial device path.
func PortOpener(addr string, baud int, readTimeout time.Duration) Opener {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return func() (Port, error) {
			return DialWebsocket(addr, readTimeout)
		}
	}
	return func() (Port, error) {
		return OpenSerial(&SerialConfig{Device: addr, Baud: baud, ReadTimeout: readTimeout})
	}
}
