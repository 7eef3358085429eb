package vehicle

import (
	"flag"
	"fmt"
	"time"

	"github.com/triton/esclink/pkg/motor"
)

// Config defines the vehicle side configuration.
type Config struct {
	SafetyMax       int
	SettleDelay     time.Duration
	PWMChip         string
	PWMChannel      int
	RefreshInterval time.Duration
	SampleInterval  time.Duration
	Simulate        bool
	FaultRate       float64
}

var defaultConfig = Config{
	SafetyMax:       motor.DefaultSafetyMax,
	SettleDelay:     motor.DefaultSettleDelay,
	PWMChip:         "/sys/class/pwm/pwmchip0",
	PWMChannel:      motor.DefaultChannel,
	RefreshInterval: motor.DefaultPeriod,
	SampleInterval:  100 * time.Millisecond,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.SafetyMax, "safety-max", defaultConfig.SafetyMax, "Maximum applied throttle percentage.")
	flag.DurationVar(&defaultConfig.SettleDelay, "settle-delay", defaultConfig.SettleDelay, "ESC arming settle delay.")
	flag.StringVar(&defaultConfig.PWMChip, "pwm-chip", defaultConfig.PWMChip, "sysfs PWM chip directory.")
	flag.IntVar(&defaultConfig.PWMChannel, "pwm-channel", defaultConfig.PWMChannel, "PWM channel driving the ESC.")
	flag.DurationVar(&defaultConfig.SampleInterval, "sample-interval", defaultConfig.SampleInterval, "Telemetry sampling interval.")
	flag.BoolVar(&defaultConfig.Simulate, "simulate", defaultConfig.Simulate, "Log PWM output and simulate sensors instead of using hardware.")
	flag.Float64Var(&defaultConfig.FaultRate, "fault-rate", defaultConfig.FaultRate, "Simulated sensor fault probability.")
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

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !motor.ValidSafetyMax(c.SafetyMax) {
		return fmt.Errorf("safety max %d out of range 1..99", c.SafetyMax)
	}
	return nil
}

// NewActuator creates the PWM output.
func (c *Config) NewActuator() motor.Actuator {
	if c.Simulate {
		return motor.NewSimActuator()
	}
	pwm := motor.NewSysfsPWM(c.PWMChip)
	pwm.Period = c.RefreshInterval
	return pwm
}

// NewMachine creates the motor state machine driving act.
func (c *Config) NewMachine(act motor.Actuator) *motor.Machine {
	m := motor.NewMachine(act)
	m.Channel = c.PWMChannel
	m.SafetyMax = c.SafetyMax
	m.SettleDelay = c.SettleDelay
	return m
}
