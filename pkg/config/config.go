// Package config loads the optional YAML configuration file.
//
// Values from the file override built-in defaults and environment
// variables, and are overridden by explicit command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/triton/esclink/pkg/env"
	"github.com/triton/esclink/pkg/link"
	"github.com/triton/esclink/pkg/motor"
	"github.com/triton/esclink/pkg/telemetry"
	"github.com/triton/esclink/pkg/vehicle"
)

// LinkSection configures the radio link.
type LinkSection struct {
	Device         string        `yaml:"device"`
	Baud           int           `yaml:"baud"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PollWindow     time.Duration `yaml:"poll_window"`
	Timing         link.Timing   `yaml:"timing"`
}

// MotorSection configures the vehicle motor output.
type MotorSection struct {
	SafetyMax   int           `yaml:"safety_max"`
	SettleDelay time.Duration `yaml:"settle_delay"`
	PWMChip     string        `yaml:"pwm_chip"`
	PWMChannel  *int          `yaml:"pwm_channel"`
}

// TelemetrySection configures the channel layout.
type TelemetrySection struct {
	Heartbeat      time.Duration       `yaml:"heartbeat"`
	SampleInterval time.Duration       `yaml:"sample_interval"`
	Channels       []telemetry.Channel `yaml:"channels"`
}

// MQTTSection configures the telemetry broker.
type MQTTSection struct {
	URL  string `yaml:"url"`
	Node string `yaml:"node"`
}

// File is the configuration file. Zero values keep the defaults.
type File struct {
	Link      LinkSection      `yaml:"link"`
	Motor     MotorSection     `yaml:"motor"`
	Telemetry TelemetrySection `yaml:"telemetry"`
	MQTT      MQTTSection      `yaml:"mqtt"`
}

var configPath string

func init() {
	configPath = os.Getenv("ESCLINK_CONFIG")
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configPath, "config", configPath, "YAML configuration file.")
}

// Load reads a configuration file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration content.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.Motor.SafetyMax != 0 && !motor.ValidSafetyMax(f.Motor.SafetyMax) {
		return nil, fmt.Errorf("parse config: safety_max %d out of range 1..99", f.Motor.SafetyMax)
	}
	for n, ch := range f.Telemetry.Channels {
		if ch.Name == "" {
			return nil, fmt.Errorf("parse config: channel %d has no name", n)
		}
	}
	return &f, nil
}

// ApplyLink overrides link settings.
func (f *File) ApplyLink(c *link.Config) {
	setString(&c.Device, f.Link.Device)
	setInt(&c.Baud, f.Link.Baud)
	setDuration(&c.ReconnectDelay, f.Link.ReconnectDelay)
	setDuration(&c.PollWindow, f.Link.PollWindow)
	t := f.Link.Timing
	setDuration(&c.Timing.ActiveDwell, t.ActiveDwell)
	setDuration(&c.Timing.IdleHeartbeat, t.IdleHeartbeat)
	setDuration(&c.Timing.ActiveListen, t.ActiveListen)
	setDuration(&c.Timing.IdleListen, t.IdleListen)
	setDuration(&c.Timing.ActiveCadence, t.ActiveCadence)
	setDuration(&c.Timing.IdleCadence, t.IdleCadence)
}

// ApplyVehicle overrides vehicle settings.
func (f *File) ApplyVehicle(c *vehicle.Config) {
	setInt(&c.SafetyMax, f.Motor.SafetyMax)
	setDuration(&c.SettleDelay, f.Motor.SettleDelay)
	setString(&c.PWMChip, f.Motor.PWMChip)
	if f.Motor.PWMChannel != nil {
		c.PWMChannel = *f.Motor.PWMChannel
	}
	setDuration(&c.SampleInterval, f.Telemetry.SampleInterval)
}

// ApplyEnv overrides broker settings.
func (f *File) ApplyEnv(c *env.Config) {
	setString(&c.MQTTBrokerURL, f.MQTT.URL)
	setString(&c.Node, f.MQTT.Node)
}

// Layout returns the configured channel layout or the default one.
func (f *File) Layout() telemetry.Layout {
	if f == nil || len(f.Telemetry.Channels) == 0 {
		return telemetry.DefaultLayout()
	}
	return telemetry.Layout{Channels: f.Telemetry.Channels}
}

// Heartbeat returns the configured telemetry heartbeat.
func (f *File) Heartbeat() time.Duration {
	if f == nil || f.Telemetry.Heartbeat <= 0 {
		return telemetry.DefaultHeartbeat
	}
	return f.Telemetry.Heartbeat
}

// ParseFlags parses the command line. When a configuration file is
// given, it's applied to the default configs and the command line is
// parsed again so explicit flags win. The returned File is nil without
// a configuration file.
func ParseFlags() (*File, error) {
	flag.Parse()
	if configPath == "" {
		return nil, nil
	}
	f, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("loaded config %s", configPath)
	f.ApplyLink(link.Default())
	f.ApplyVehicle(vehicle.Default())
	f.ApplyEnv(env.Default())
	flag.Parse()
	return f, nil
}

// MustParseFlags is ParseFlags failing on error.
func MustParseFlags() *File {
	f, err := ParseFlags()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	return f
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}
