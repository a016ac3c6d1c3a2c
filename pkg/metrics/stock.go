package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics counts recount and replenishment activity.
type StockMetrics struct {
	batches   prometheus.Counter
	items     prometheus.Counter
	anomalies prometheus.Counter
	orders    *prometheus.CounterVec
}

// NewStockMetrics registers the stock counters on reg; nil disables them.
func NewStockMetrics(reg prometheus.Registerer) *StockMetrics {
	if reg == nil {
		return &StockMetrics{}
	}
	m := &StockMetrics{
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockcount_recount_batches_total",
			Help: "Recount batches applied.",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockcount_recount_items_total",
			Help: "Items updated by recount batches.",
		}),
		anomalies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stockcount_recount_anomalies_total",
			Help: "Recounts flagged as abnormal variance.",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stockcount_purchase_order_events_total",
			Help: "Purchase order lifecycle events by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.batches, m.items, m.anomalies, m.orders)
	return m
}

// ObserveBatch records one applied recount batch.
func (m *StockMetrics) ObserveBatch(updated, anomalies int) {
	if m == nil || m.batches == nil {
		return
	}
	m.batches.Inc()
	m.items.Add(float64(updated))
	m.anomalies.Add(float64(anomalies))
}

// IncOrder records an order entering status.
func (m *StockMetrics) IncOrder(status string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(status)).Inc()
}
