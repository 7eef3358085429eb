// Package env configures the telemetry broker connection of the
// controller station.
package env

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/controller"
	"github.com/triton/esclink/pkg/sink"
	"github.com/triton/esclink/pkg/sink/mqtt"
)

// Config provides the options for publishing controller events.
type Config struct {
	// MQTTBrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// Node names this station in topics.
	Node string
}

var defaultConfig = Config{}

func init() {
	if val := os.Getenv("ESCLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for telemetry, empty to disable.")
	flag.StringVar(&defaultConfig.Node, "node", defaultConfig.Node, "Node name in topics, defaults to the machine ID.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NodeName returns Node or the machine ID.
func (c *Config) NodeName() string {
	if c.Node != "" {
		return c.Node
	}
	return MachineID()
}

// NewQueue creates the broker queue, nil if no broker is configured.
func (c *Config) NewQueue(clientID string) (*mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, nil
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL, clientID)
	if err != nil {
		return nil, fmt.Errorf("create MQTT queue error: %w", err)
	}
	return q, nil
}

// NewSink connects to the broker and creates the event sink. It returns
// a nil sink if no broker is configured. Connection failures are only
// logged as the client keeps reconnecting.
func (c *Config) NewSink() (controller.Sink, *mqtt.Queue, error) {
	node := c.NodeName()
	q, err := c.NewQueue(AppID + "-" + node)
	if err != nil || q == nil {
		return nil, nil, err
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Warningf("MQTT connect %s: %v", c.MQTTBrokerURL, token.Error())
	}
	return sink.New(q, node), q, nil
}
