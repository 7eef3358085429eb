package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/config"
	"github.com/triton/esclink/pkg/console"
	"github.com/triton/esclink/pkg/controller"
	"github.com/triton/esclink/pkg/env"
	fx "github.com/triton/esclink/pkg/framework"
	"github.com/triton/esclink/pkg/link"
	"github.com/triton/esclink/pkg/metrics"
)

func init() {
	config.SetupFlags()
	link.SetupFlags()
	env.SetupFlags()
	metrics.SetupFlags()
}

func main() {
	file := config.MustParseFlags()
	metrics.Init()

	linkConf := link.NewConfig()
	conn := linkConf.NewConn()
	defer conn.Close()

	side := controller.New(conn, file.Layout())
	side.Scheduler.Timing = linkConf.Timing

	sink, queue, err := env.NewConfig().NewSink()
	if err != nil {
		glog.Exit(err)
	}
	if queue != nil {
		defer queue.Close()
		side.Sink = sink
	}

	runner := fx.NewRunnerWith(context.Background()).Go(side)
	if srv := metrics.Server(); srv != nil {
		runner.Go(srv)
	}
	args := flag.Args()
	console.NewShell(console.NewConsole(side)).Run(args...)

	if len(args) > 0 {
		// Leave time for one transmission and its ack.
		time.Sleep(linkConf.Timing.ActiveCadence + linkConf.Timing.ActiveListen)
	} else if err := side.Stop(); err != nil {
		glog.Warningf("stop on exit: %v", err)
	}
	if err := runner.WaitTimeout(link.DefaultReconnectDelay); err != nil {
		glog.Warningf("shutdown: %v", err)
	}
}
