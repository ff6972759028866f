package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RPCDuration measures round-trip time for synchronous AMQP methods
// (queue.declare, basic.consume, and so on), labeled by the method's Go type
// name (for example amqpchannel.QueueDeclare) so a slow declare doesn't hide
// behind a fast qos.
var RPCDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "amqpchannel_rpc_duration_seconds",
		Help:    "Duration of synchronous AMQP method round-trips in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
	},
	[]string{"method"},
)

// PublishesTotal counts outbound basic.publish calls, labeled by exchange.
var PublishesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqpchannel_publishes_total",
		Help: "Total number of messages published",
	},
	[]string{"exchange"},
)

// ConfirmDuration measures time from publish to a settled confirm; only
// meaningful on channels in confirm mode.
var ConfirmDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "amqpchannel_confirm_duration_seconds",
		Help:    "Duration from publish to confirm settlement in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	},
)

// DeliveriesTotal counts inbound basic.deliver messages handed to a
// consumer callback, labeled by consumer tag.
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "amqpchannel_deliveries_total",
		Help: "Total number of messages delivered to consumers",
	},
	[]string{"consumer"},
)

// ChannelsOpen tracks how many channels are currently open in this process.
var ChannelsOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "amqpchannel_channels_open",
		Help: "Number of AMQP channels currently open",
	},
)
