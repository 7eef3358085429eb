package main

//go-build: CGO_ENABLED=0

import (
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/config"
	fx "github.com/triton/esclink/pkg/framework"
	"github.com/triton/esclink/pkg/link"
	"github.com/triton/esclink/pkg/metrics"
	"github.com/triton/esclink/pkg/sensor"
	"github.com/triton/esclink/pkg/vehicle"
)

func init() {
	config.SetupFlags()
	link.SetupFlags()
	vehicle.SetupFlags()
	metrics.SetupFlags()
}

func main() {
	file := config.MustParseFlags()
	metrics.Init()

	linkConf, conf := link.NewConfig(), vehicle.NewConfig()
	if err := conf.Validate(); err != nil {
		glog.Exit(err)
	}
	conn := linkConf.NewConn()
	defer conn.Close()

	var sensors sensor.Reader
	if conf.Simulate {
		sim := sensor.NewSimulated(time.Now().UnixNano())
		sim.FaultRate = conf.FaultRate
		sensors = sim
	} else {
		glog.Warning("no sensors attached, telemetry disabled")
	}

	side := vehicle.New(conf.NewMachine(conf.NewActuator()), conn, file.Layout(), sensors)
	side.RefreshInterval = conf.RefreshInterval
	side.SampleInterval = conf.SampleInterval
	side.PollWindow = linkConf.PollWindow
	side.Reducer.Heartbeat = file.Heartbeat()

	var extra []fx.Runnable
	if srv := metrics.Server(); srv != nil {
		extra = append(extra, srv)
	}
	fx.NewLoop().Add(side).RunOrFail(extra...)
}
