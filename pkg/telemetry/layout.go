package telemetry

import "time"

// Channel describes one telemetry channel.
type Channel struct {
	Name string `yaml:"name"`
	Unit string `yaml:"unit,omitempty"`
	// Threshold is the minimum absolute change against the last
	// sent value which forces a frame. Zero means every sample
	// is sent.
	Threshold float64 `yaml:"threshold,omitempty"`
	// Decimals used when formatting the value on the wire.
	Decimals int `yaml:"decimals"`
}

// Layout is the fixed, ordered set of channels carried by a frame.
type Layout struct {
	Channels []Channel
}

// Len returns the number of channels.
func (l Layout) Len() int {
	return len(l.Channels)
}

// Index returns the position of the named channel, or -1.
func (l Layout) Index(name string) int {
	for n, ch := range l.Channels {
		if ch.Name == name {
			return n
		}
	}
	return -1
}

// Names returns channel names in order.
func (l Layout) Names() []string {
	names := make([]string, len(l.Channels))
	for n, ch := range l.Channels {
		names[n] = ch.Name
	}
	return names
}

// DefaultHeartbeat is the longest gap between two sent frames.
const DefaultHeartbeat = time.Second

// DefaultLayout returns the environment sensor plus IMU layout.
func DefaultLayout() Layout {
	return Layout{Channels: []Channel{
		{Name: "temp_bme280", Unit: "°C", Threshold: 0.25, Decimals: 2},
		{Name: "humidity", Unit: "%", Threshold: 1.0, Decimals: 1},
		{Name: "pressure", Unit: "hPa", Threshold: 0.5, Decimals: 2},
		{Name: "altitude", Unit: "m", Threshold: 0.5, Decimals: 1},
		{Name: "acc_x", Unit: "m/s²", Threshold: 0.25, Decimals: 3},
		{Name: "acc_y", Unit: "m/s²", Threshold: 0.25, Decimals: 3},
		{Name: "acc_z", Unit: "m/s²", Threshold: 0.25, Decimals: 3},
		{Name: "gyro_x", Unit: "°/s", Threshold: 5.0, Decimals: 2},
		{Name: "gyro_y", Unit: "°/s", Threshold: 5.0, Decimals: 2},
		{Name: "gyro_z", Unit: "°/s", Threshold: 5.0, Decimals: 2},
		{Name: "temp_mpu", Unit: "°C", Threshold: 0.25, Decimals: 2},
	}}
}
