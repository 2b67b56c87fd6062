package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hardware_desk_orders_placed_total",
		Help: "Orders accepted at checkout.",
	})

	StockShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hardware_desk_stock_shortfalls_total",
		Help: "Checkouts rejected for insufficient stock.",
	})

	StatusChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hardware_desk_order_status_changes_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hardware_desk_notifications_total",
		Help: "Notification attempts by result (sent, skipped, dropped, gone, failed).",
	}, []string{"result"})

	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hardware_desk_persistence_failures_total",
		Help: "Snapshot writes that failed, by document.",
	}, []string{"store"})
)

func Handler() http.Handler { return promhttp.Handler() }
