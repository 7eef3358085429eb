package link

import (
	"flag"
	"os"
	"time"
)

// Config defines the radio link configuration.
type Config struct {
	// Device is a serial device path or a ws:// radio simulator URL.
	Device         string
	Baud           int
	ReadTimeout    time.Duration
	ReconnectDelay time.Duration
	PollWindow     time.Duration
	Timing         Timing
}

var defaultConfig = Config{
	Device:         DefaultDevice,
	Baud:           DefaultBaud,
	ReadTimeout:    DefaultReadTimeout,
	ReconnectDelay: DefaultReconnectDelay,
	PollWindow:     DefaultPollWindow,
	Timing:         DefaultTiming(),
}

func init() {
	if val := os.Getenv("ESCLINK_DEVICE"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "device", defaultConfig.Device, "Radio serial device or ws:// simulator URL.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Radio baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial read timeout.")
	flag.DurationVar(&defaultConfig.ReconnectDelay, "reconnect-delay", defaultConfig.ReconnectDelay, "Delay before reopening a failed link.")
	flag.DurationVar(&defaultConfig.PollWindow, "poll-window", defaultConfig.PollWindow, "Vehicle listen window per poll.")
	flag.DurationVar(&defaultConfig.Timing.ActiveDwell, "active-dwell", defaultConfig.Timing.ActiveDwell, "Active cadence lasts this long after a throttle change.")
	flag.DurationVar(&defaultConfig.Timing.IdleHeartbeat, "idle-heartbeat", defaultConfig.Timing.IdleHeartbeat, "Retransmit interval while idle.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConn creates a Conn using the config.
func (c *Config) NewConn() *Conn {
	conn := NewConn(PortOpener(c.Device, c.Baud, c.ReadTimeout))
	if c.ReconnectDelay > 0 {
		conn.ReconnectDelay = c.ReconnectDelay
	}
	return conn
}
