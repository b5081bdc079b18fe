package bank

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	txsProcessed  prometheus.Counter
	txsSucceeded  prometheus.Counter
	txsFailed     prometheus.Counter
	txsRejected   prometheus.Counter
	airdrops      prometheus.Counter
	accountsSaved prometheus.Counter
	computeUnits  prometheus.Histogram
}

// NewMetrics creates the bank metrics and registers them with r.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		txsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "txs_processed",
			Help:      "number of transactions executed",
		}),
		txsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "txs_succeeded",
			Help:      "number of executed transactions whose state was committed",
		}),
		txsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "txs_failed",
			Help:      "number of executed transactions rolled back by an instruction or rent error",
		}),
		txsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "txs_rejected",
			Help:      "number of transactions rejected before execution",
		}),
		airdrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "airdrops",
			Help:      "number of airdrops credited",
		}),
		accountsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bank",
			Name:      "accounts_saved",
			Help:      "number of account states written to the store",
		}),
		computeUnits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bank",
			Name:      "compute_units",
			Help:      "compute units consumed per executed transaction",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 12),
		}),
	}

	return m, errors.Join(
		r.Register(m.txsProcessed),
		r.Register(m.txsSucceeded),
		r.Register(m.txsFailed),
		r.Register(m.txsRejected),
		r.Register(m.airdrops),
		r.Register(m.accountsSaved),
		r.Register(m.computeUnits),
	)
}
