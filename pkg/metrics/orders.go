package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order placement outcomes and stock movements.
type OrderMetrics struct {
	placed      *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	stockUnits  *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order placements or confirmations rejected, by error code.",
	}, []string{"code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Applied order status transitions.",
	}, []string{"from", "to"})
	stockUnits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_units_moved_total",
		Help: "Units decremented from or restored to stock.",
	}, []string{"direction"})
	reg.MustRegister(placed, rejected, transitions, stockUnits)
	return &OrderMetrics{
		placed:      placed,
		rejected:    rejected,
		transitions: transitions,
		stockUnits:  stockUnits,
	}
}

// IncPlaced counts a created order.
func (m *OrderMetrics) IncPlaced(method string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(method)).Inc()
}

// IncRejected counts a rejected placement by error code.
func (m *OrderMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncTransition counts an applied status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// AddStockDecremented records units taken out of stock.
func (m *OrderMetrics) AddStockDecremented(units int) {
	m.addStock("decrement", units)
}

// AddStockRestored records units returned to stock.
func (m *OrderMetrics) AddStockRestored(units int) {
	m.addStock("restore", units)
}

func (m *OrderMetrics) addStock(direction string, units int) {
	if m == nil || m.stockUnits == nil || units <= 0 {
		return
	}
	m.stockUnits.WithLabelValues(direction).Add(float64(units))
}
