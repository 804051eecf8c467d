// Prometheus collectors for the swarm network simulator.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the simulator's Prometheus metrics and provides
// the HTTP handler serving them.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Counter
	TickDuration  prometheus.Histogram
	Sent          prometheus.Counter
	Delivered     prometheus.Counter
	UnknownDest   prometheus.Counter
	Nodes         prometheus.Gauge
	Outages       prometheus.Gauge
	NeighborLinks prometheus.Gauge
}

// NewCollector registers the simulator metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmnet_ticks_total",
			Help: "Total number of completed simulation ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "swarmnet_tick_duration_seconds",
			Help:    "Wall-clock time spent per tick, including the O(n^2) link pass.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		Sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmnet_datagrams_sent_total",
			Help: "Datagrams accepted by the broker.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmnet_deliveries_total",
			Help: "Individual datagram deliveries to recipient callbacks.",
		}),
		UnknownDest: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "swarmnet_unknown_destination_total",
			Help: "Datagrams dropped because no listener was bound to the destination endpoint.",
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmnet_nodes",
			Help: "Registered nodes, base station included.",
		}),
		Outages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmnet_outages",
			Help: "Nodes currently in a comms outage.",
		}),
		NeighborLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "swarmnet_neighbor_links",
			Help: "Unordered pairs currently satisfying the neighbor policy.",
		}),
	}

	for _, col := range []prometheus.Collector{
		c.Ticks, c.TickDuration, c.Sent, c.Delivered, c.UnknownDest,
		c.Nodes, c.Outages, c.NeighborLinks,
	} {
		if err := reg.Register(col); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	return c, nil
}

// Handler serves the metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveTick(d time.Duration) {
	c.Ticks.Inc()
	c.TickDuration.Observe(d.Seconds())
}

func (c *Collector) AddSent(n int)      { c.Sent.Add(float64(n)) }
func (c *Collector) AddDelivered(n int) { c.Delivered.Add(float64(n)) }

func (c *Collector) AddUnknownDestination(n int) { c.UnknownDest.Add(float64(n)) }

func (c *Collector) SetNodes(n int)         { c.Nodes.Set(float64(n)) }
func (c *Collector) SetOutages(n int)       { c.Outages.Set(float64(n)) }
func (c *Collector) SetNeighborLinks(n int) { c.NeighborLinks.Set(float64(n)) }
