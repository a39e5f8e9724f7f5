package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	RunCount          prometheus.Counter
	MessagesFound     prometheus.Counter
	MessagesIngested  prometheus.Counter
	MessagesSkipped   prometheus.Counter
	DeliverySuccesses prometheus.Counter
	DeliveryFailures  prometheus.Counter
	RunDuration       prometheus.Histogram
}

// New creates new Prometheus metrics
func New() *Metrics {
	return &Metrics{
		RunCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_run_count",
			Help: "Total number of pipeline runs",
		}),
		MessagesFound: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_messages_found",
			Help: "Total number of candidate messages listed from the mailbox",
		}),
		MessagesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_messages_ingested",
			Help: "Total number of messages rendered and persisted",
		}),
		MessagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_messages_skipped",
			Help: "Total number of messages skipped due to fetch, extract or render errors",
		}),
		DeliverySuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_delivery_successes",
			Help: "Total number of PDFs delivered to the chat",
		}),
		DeliveryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mail_courier_delivery_failures",
			Help: "Total number of failed delivery attempts",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mail_courier_run_duration_seconds",
			Help:    "Time spent on one full pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
