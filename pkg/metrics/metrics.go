// Package metrics exposes the daemon's Prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"georefgo/pkg/georef"
)

// Rebase modes.
const (
	RebaseOrigin   = "origin"
	RebaseFloating = "floating"
)

// Collector bundles the georeference metrics. All methods are safe on a nil
// receiver so components can run without metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	OriginUpdates         prometheus.Counter
	Rebases               *prometheus.CounterVec
	SubLevelSwitches      prometheus.Counter
	ListenerNotifications prometheus.Counter
	RejectedRequests      *prometheus.CounterVec

	ActiveSubLevel prometheus.Gauge
	OriginLon      prometheus.Gauge
	OriginLat      prometheus.Gauge
	OriginHeight   prometheus.Gauge
	Revision       prometheus.Gauge

	TickDuration  prometheus.Histogram
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewCollector registers the metrics against reg, defaulting to the global
// registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	var err error

	counters := []struct {
		dst  *prometheus.Counter
		name string
		help string
	}{
		{&c.OriginUpdates, "georef_origin_updates_total", "Committed origin changes."},
		{&c.SubLevelSwitches, "georef_sublevel_switches_total", "Active sub-level transitions."},
		{&c.ListenerNotifications, "georef_listener_notifications_total", "Listener callbacks delivered."},
	}
	for _, ct := range counters {
		if *ct.dst, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: ct.name, Help: ct.help}), ct.name); err != nil {
			return nil, err
		}
	}

	c.Rebases, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "georef_rebases_total",
		Help: "Rebases, labeled by whether the origin moved or only the floating origin advanced.",
	}, []string{"mode"}), "georef_rebases_total")
	if err != nil {
		return nil, err
	}
	c.RejectedRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "georef_rejected_requests_total",
		Help: "Requests rejected before commit, labeled by operation.",
	}, []string{"operation"}), "georef_rejected_requests_total")
	if err != nil {
		return nil, err
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.ActiveSubLevel, "georef_active_sublevel_index", "Index of the active sub-level, -1 when none."},
		{&c.OriginLon, "georef_origin_longitude_degrees", "Current origin longitude."},
		{&c.OriginLat, "georef_origin_latitude_degrees", "Current origin latitude."},
		{&c.OriginHeight, "georef_origin_height_meters", "Current origin height above the ellipsoid."},
		{&c.Revision, "georef_revision", "Current georeference revision."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name); err != nil {
			return nil, err
		}
	}
	c.ActiveSubLevel.Set(-1)

	tick := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "georef_tick_duration_seconds",
		Help:    "Frame loop tick latency.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
	})
	if err := reg.Register(tick); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(prometheus.Histogram)
		if !ok {
			return nil, fmt.Errorf("collector georef_tick_duration_seconds already registered with incompatible type")
		}
		tick = existing
	}
	c.TickDuration = tick

	c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "georef_http_requests_total",
		Help: "Handled HTTP requests, labeled by route and status code.",
	}, []string{"route", "code"}), "georef_http_requests_total")
	if err != nil {
		return nil, err
	}
	c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "georef_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route"}), "georef_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// OnGeoreferenceUpdated implements georef.Listener.
func (c *Collector) OnGeoreferenceUpdated(s georef.Snapshot) {
	if c == nil {
		return
	}
	c.OriginUpdates.Inc()
	c.OriginLon.Set(s.Origin.Longitude)
	c.OriginLat.Set(s.Origin.Latitude)
	c.OriginHeight.Set(s.Origin.Height)
	c.Revision.Set(float64(s.Revision))
}

// ObserveNotifications adds n delivered listener callbacks.
func (c *Collector) ObserveNotifications(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.ListenerNotifications.Add(float64(n))
}

// ObserveRebase counts one rebase.
func (c *Collector) ObserveRebase(originMoved bool) {
	if c == nil {
		return
	}
	mode := RebaseFloating
	if originMoved {
		mode = RebaseOrigin
	}
	c.Rebases.WithLabelValues(mode).Inc()
}

// ObserveSwitch counts a sub-level transition and updates the active index.
func (c *Collector) ObserveSwitch(activeIndex int) {
	if c == nil {
		return
	}
	c.SubLevelSwitches.Inc()
	c.ActiveSubLevel.Set(float64(activeIndex))
}

// ObserveRejected counts a request refused by validation.
func (c *Collector) ObserveRejected(operation string) {
	if c == nil {
		return
	}
	c.RejectedRequests.WithLabelValues(operation).Inc()
}

// ObserveTick records one frame loop duration.
func (c *Collector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// ObserveHTTP records one handled request.
func (c *Collector) ObserveHTTP(route string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route).Observe(d.Seconds())
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
