// Package metrics exposes Prometheus counters for update handling, gate decisions, referrals and broadcasts.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Unlock outcomes recorded by RecordUnlock.
const (
	UnlockGranted = "granted"
	UnlockBypass  = "bypass"
	UnlockDenied  = "denied"
	UnlockFailed  = "error"
)

// Collector owns a private registry so tests and multiple bots in one process do not collide.
type Collector struct {
	registry *prometheus.Registry

	updates        *prometheus.CounterVec
	updateLatency  *prometheus.HistogramVec
	membership     *prometheus.CounterVec
	unlocks        *prometheus.CounterVec
	referrals      prometheus.Counter
	broadcastSends *prometheus.CounterVec
	broadcasts     prometheus.Counter
	contentCreated prometheus.Counter
	inFlight       prometheus.Gauge
}

// NewCollector registers the bot metrics under namespace (default "referral_bot").
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "referral_bot"
	}
	c := &Collector{registry: prometheus.NewRegistry()}

	c.updates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "updates",
		Name:      "handled_total",
		Help:      "Inbound updates handled, by kind and result",
	}, []string{"kind", "result"})

	c.updateLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "updates",
		Name:      "duration_seconds",
		Help:      "Time spent handling one inbound update",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"kind"})

	c.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "updates",
		Name:      "in_flight",
		Help:      "Updates currently being handled",
	})

	c.membership = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "membership_checks_total",
		Help:      "Membership gate decisions",
	}, []string{"allowed"})

	c.unlocks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "gate",
		Name:      "unlocks_total",
		Help:      "Content gate decisions (granted, bypass, denied, error)",
	}, []string{"result"})

	c.referrals = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "referral",
		Name:      "credits_total",
		Help:      "Referral bonuses credited",
	})

	c.broadcasts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "runs_total",
		Help:      "Broadcasts dispatched",
	})

	c.broadcastSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "broadcast",
		Name:      "deliveries_total",
		Help:      "Per-recipient broadcast deliveries",
	}, []string{"result"})

	c.contentCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "created_total",
		Help:      "Content items added through ingestion",
	})

	c.registry.MustRegister(
		c.updates, c.updateLatency, c.inFlight,
		c.membership, c.unlocks, c.referrals,
		c.broadcasts, c.broadcastSends, c.contentCreated,
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// TrackUpdate marks an update in flight and returns a func that records its result.
func (c *Collector) TrackUpdate(kind string) func(err error) {
	if c == nil {
		return func(error) {}
	}
	start := time.Now()
	c.inFlight.Inc()
	return func(err error) {
		c.inFlight.Dec()
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.updates.WithLabelValues(kind, result).Inc()
		c.updateLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}

// RecordMembership records one membership gate decision.
func (c *Collector) RecordMembership(allowed bool) {
	if c == nil {
		return
	}
	label := "false"
	if allowed {
		label = "true"
	}
	c.membership.WithLabelValues(label).Inc()
}

// RecordUnlock records one content gate decision. result is one of the Unlock* constants.
func (c *Collector) RecordUnlock(result string) {
	if c == nil {
		return
	}
	c.unlocks.WithLabelValues(result).Inc()
}

// RecordReferralCredit records one credited referral bonus.
func (c *Collector) RecordReferralCredit() {
	if c == nil {
		return
	}
	c.referrals.Inc()
}

// RecordBroadcast records a finished broadcast run.
func (c *Collector) RecordBroadcast(succeeded, failed int) {
	if c == nil {
		return
	}
	c.broadcasts.Inc()
	c.broadcastSends.WithLabelValues("ok").Add(float64(succeeded))
	c.broadcastSends.WithLabelValues("failed").Add(float64(failed))
}

// RecordContentCreated records one ingested content item.
func (c *Collector) RecordContentCreated() {
	if c == nil {
		return
	}
	c.contentCreated.Inc()
}
