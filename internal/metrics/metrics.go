package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	UssdRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofono_ussd_requests_total",
			Help: "USSD requests by flow and reply kind",
		},
		[]string{"flow", "reply"}, // registration|login|regular|merchant , con|end
	)

	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptofono_transfers_total",
			Help: "Fund movement attempts by type and outcome",
		},
		[]string{"type", "status"}, // send|external_send|withdraw|merchant_payment , completed|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		UssdRequestsTotal,
		TransfersTotal,
	)
}
