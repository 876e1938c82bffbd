// Package metrics exposes touchbox activity as Prometheus metrics.
//
// Features:
//   - Counters for key transitions by tag, repeats, sink events and failures
//   - Gauges for connected controllers and uptime
//   - A histogram of driver iteration time
//   - Optional HTTP endpoint for scraping
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"touchbox/internal/synth"
)

const namespace = "touchbox"

// Metrics holds every touchbox collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Transitions   *prometheus.CounterVec
	Repeats       prometheus.Counter
	SinkEvents    *prometheus.CounterVec
	SinkErrors    prometheus.Counter
	Reloads       *prometheus.CounterVec
	PadsConnected prometheus.Gauge
	LoopDuration  prometheus.Histogram
}

// New creates and registers all touchbox metrics. The registry also carries
// the Go runtime and process collectors.
func New() *Metrics {
	start := time.Now()
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_transitions_total",
			Help:      "Key press and release requests by outcome tag and source.",
		}, []string{"tag", "source"}),
		Repeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_repeats_total",
			Help:      "Repeat down-events sent for held keys.",
		}),
		SinkEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_events_total",
			Help:      "Key events handed to the sink by direction.",
		}, []string{"direction"}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Key events the sink failed to deliver.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reloads by result.",
		}, []string{"result"}),
		PadsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pads_connected",
			Help:      "Controllers currently connected.",
		}),
		LoopDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "loop_duration_seconds",
			Help:      "Time spent reading, mapping and ticking per driver iteration.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025},
		}),
	}

	reg.MustRegister(
		m.Transitions,
		m.Repeats,
		m.SinkEvents,
		m.SinkErrors,
		m.Reloads,
		m.PadsConnected,
		m.LoopDuration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Seconds since the process started.",
		}, func() float64 { return time.Since(start).Seconds() }),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe counts one key transition. It implements synth.Observer.
func (m *Metrics) Observe(d synth.Diagnostic) {
	m.Transitions.WithLabelValues(string(d.Tag), d.Source).Inc()
}

// Repeated counts n repeat events.
func (m *Metrics) Repeated(n int) {
	if n > 0 {
		m.Repeats.Add(float64(n))
	}
}

// Reloaded counts a configuration reload.
func (m *Metrics) Reloaded(err error) {
	if err != nil {
		m.Reloads.WithLabelValues("error").Inc()
		return
	}
	m.Reloads.WithLabelValues("ok").Inc()
}

// Sink wraps s so every event it receives is counted.
func (m *Metrics) Sink(s synth.Sink) synth.Sink {
	return synth.SinkFunc(func(code synth.Code, pressed bool) error {
		direction := "up"
		if pressed {
			direction = "down"
		}
		m.SinkEvents.WithLabelValues(direction).Inc()
		if err := s.Emit(code, pressed); err != nil {
			m.SinkErrors.Inc()
			return err
		}
		return nil
	})
}

// Handler returns the scrape handler for m.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}

// Server serves the scrape endpoint.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *slog.Logger
}

// Listen binds addr and prepares to serve m on path.
func Listen(m *Metrics, addr, path string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &Server{
		srv: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve serves until ctx is canceled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.Serve(s.ln)
	}()
	s.logger.Info("metrics endpoint listening", "addr", s.ln.Addr().String())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown metrics: %w", err)
		}
		return nil
	}
}
