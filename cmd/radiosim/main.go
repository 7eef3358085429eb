package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"net/http"
	"time"

	"github.com/golang/glog"

	"github.com/triton/esclink/pkg/radiosim"
)

var (
	listenAddr = ":8070"
	dropRate   float64
	latency    time.Duration
)

func init() {
	flag.StringVar(&listenAddr, "listen", listenAddr, "Listen address.")
	flag.Float64Var(&dropRate, "drop-rate", dropRate, "Probability a line is lost.")
	flag.DurationVar(&latency, "latency", latency, "Airtime delay per line.")
}

func main() {
	flag.Parse()

	relay := radiosim.NewRelay(time.Now().UnixNano())
	relay.DropRate, relay.Latency = dropRate, latency
	mux := http.NewServeMux()
	mux.Handle("/radio/", relay.Handler())
	glog.Infof("radio relay on ws://%s/radio/{controller,vehicle}", listenAddr)
	if err := http.ListenAndServe(listenAddr, mux); err != nil {
		glog.Exit(err)
	}
}
