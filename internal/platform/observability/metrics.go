package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StorageUp is 1 when the last readiness probe reached the store.
	StorageUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotel_dashboard_storage_up",
		Help: "Whether the last readiness probe reached the store",
	})

	// BuildInfo carries the storage driver the process was started with.
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hotel_dashboard_build_info",
		Help: "Static process information",
	}, []string{"driver"})
)
