package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"strings"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/env"
	"github.com/triton/esclink/pkg/sink/mqtt"
	"github.com/triton/esclink/pkg/sink/msgs"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Set("logtostderr", "true")
	flag.Parse()

	conf := env.NewConfig()
	if conf.MQTTBrokerURL == "" {
		glog.Exit("-mqtt or ESCLINK_MQTT_URL is required")
	}
	q, err := conf.NewQueue(env.AppID + "-telemon-" + env.MachineID())
	if err != nil {
		glog.Exit(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exit(token.Error())
	}

	filter := "#"
	if conf.Node != "" {
		filter = conf.Node + "/#"
	}
	q.Sub(filter, mqtt.Handler(func(topic string, payload []byte) {
		suffix := topic[strings.LastIndexByte(topic, '/')+1:]
		msg, err := msgs.Decode(suffix, payload)
		if err != nil {
			glog.Warningf("%s: %v", topic, err)
			return
		}
		glog.Infof("%s: %s", topic, msg.String())
	}))
	<-(chan struct{})(nil)
}
