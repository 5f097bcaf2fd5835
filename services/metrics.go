package services

import "github.com/prometheus/client_golang/prometheus"

var (
	newPublicationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publicacoes_novas_total",
			Help: "Total number of new publications stored, by source.",
		},
		[]string{"fonte"},
	)
	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_entregas_total",
			Help: "Webhook delivery attempts by result (ok, erro, ignorado).",
		},
		[]string{"resultado"},
	)
	cyclesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciclos_total",
			Help: "Pipeline cycles by result (ok, parcial, ignorado).",
		},
		[]string{"resultado"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ciclo_duracao_segundos",
			Help:    "Duration of a full pipeline cycle.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(newPublicationsCounter, webhookDeliveries, cyclesCounter, cycleDuration)
}
