package metrics

import (
	"context"
	"flag"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/triton/esclink/pkg/framework"
)

const metricPrefix = "esclink_"

var listenAddr string

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&listenAddr, "metrics-addr", listenAddr, "Address serving Prometheus metrics, empty to disable.")
}

// Server returns a Runnable serving metrics on the flag address, nil
// when disabled.
func Server() fx.Runnable {
	if listenAddr == "" {
		return nil
	}
	return fx.NamedRun("metrics", fx.RunFunc(func(ctx context.Context) error {
		return Serve(ctx, listenAddr)
	}))
}

// Line types received on the link.
const (
	LineCommand   = "command"
	LineAck       = "ack"
	LineTelemetry = "telemetry"
	LineMalformed = "malformed"
)

var (
	registerOnce sync.Once

	linkFramesSent    *prometheus.CounterVec
	linkLinesReceived *prometheus.CounterVec
	linkErrors        *prometheus.CounterVec

	acksTotal  *prometheus.CounterVec
	ackLatency prometheus.Histogram

	telemetrySamples prometheus.Counter
	telemetryFrames  prometheus.Counter

	throttleTarget    prometheus.Gauge
	throttleConfirmed prometheus.Gauge
	linkActive        prometheus.Gauge
)

// Init registers metrics with the default registry. Helpers are
// no-ops until Init is called.
func Init() {
	registerOnce.Do(func() {
		linkFramesSent = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "link_frames_sent_total",
				Help: "Lines transmitted on the link by type",
			},
			[]string{"type"},
		)
		linkLinesReceived = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "link_lines_received_total",
				Help: "Lines received on the link by decoded type",
			},
			[]string{"type"},
		)
		linkErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "link_errors_total",
				Help: "Link errors by operation",
			},
			[]string{"op"},
		)
		acksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "acks_total",
				Help: "Acknowledgments by kind and status",
			},
			[]string{"kind", "status"},
		)
		ackLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ack_latency_seconds",
				Help:    "Time from last transmission to acknowledgment",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
		)
		telemetrySamples = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "telemetry_samples_total",
			Help: "Telemetry samples taken or received",
		})
		telemetryFrames = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "telemetry_frames_sent_total",
			Help: "Telemetry frames which passed the reducer",
		})
		throttleTarget = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "throttle_target_percent",
			Help: "Target throttle",
		})
		throttleConfirmed = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "throttle_confirmed_percent",
			Help: "Throttle last confirmed or applied by the vehicle",
		})
		linkActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "link_active",
			Help: "1 while the scheduler runs the active cadence",
		})

		prometheus.MustRegister(
			linkFramesSent,
			linkLinesReceived,
			linkErrors,
			acksTotal,
			ackLatency,
			telemetrySamples,
			telemetryFrames,
			throttleTarget,
			throttleConfirmed,
			linkActive,
		)
	})
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	Init()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// ObserveFrameSent counts a transmitted line.
func ObserveFrameSent(lineType string) {
	if linkFramesSent != nil {
		linkFramesSent.WithLabelValues(lineType).Inc()
	}
}

// ObserveLineReceived counts a received line by decoded type.
func ObserveLineReceived(lineType string) {
	if linkLinesReceived != nil {
		linkLinesReceived.WithLabelValues(lineType).Inc()
	}
}

// ObserveLinkError counts a link error.
func ObserveLinkError(op string) {
	if linkErrors != nil {
		linkErrors.WithLabelValues(op).Inc()
	}
}

// ObserveAck counts an acknowledgment, latency is skipped when <= 0.
func ObserveAck(kind, status string, latency time.Duration) {
	if acksTotal != nil {
		acksTotal.WithLabelValues(kind, status).Inc()
	}
	if ackLatency != nil && latency > 0 {
		ackLatency.Observe(latency.Seconds())
	}
}

// ObserveTelemetry counts a sample, and a frame when sent.
func ObserveTelemetry(sent bool) {
	if telemetrySamples != nil {
		telemetrySamples.Inc()
	}
	if sent && telemetryFrames != nil {
		telemetryFrames.Inc()
	}
}

// SetThrottle records target and confirmed throttle.
func SetThrottle(target, confirmed int) {
	if throttleTarget != nil {
		throttleTarget.Set(float64(target))
	}
	if throttleConfirmed != nil {
		throttleConfirmed.Set(float64(confirmed))
	}
}

// SetLinkActive records the scheduler cadence.
func SetLinkActive(active bool) {
	if linkActive == nil {
		return
	}
	if active {
		linkActive.Set(1)
	} else {
		linkActive.Set(0)
	}
}
