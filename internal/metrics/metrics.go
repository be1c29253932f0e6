package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_active_connections",
		Help: "Active websocket connections",
	})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_events_published_total",
		Help: "Realtime events handed to the publisher, by event name",
	}, []string{"event"})

	RuleRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_rule_rejections_total",
		Help: "Requests rejected by a domain rule, by error kind",
	}, []string{"kind"})
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Connections, EventsPublished, RuleRejections)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
