package cscall

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка. Регистрируются в default registry процесса;
// экспорт наружу — забота хост-сервиса.
var (
	metricOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cscall",
		Name:      "operations_total",
		Help:      "Операции управления вызовами по результатам",
	}, []string{"operation", "result"})

	metricActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cscall",
		Name:      "active_connections",
		Help:      "Число отслеживаемых ветвей на слот",
	}, []string{"slot"})

	metricReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cscall",
		Name:      "reconcile_duration_seconds",
		Help:      "Длительность сверки отчета модема с картой ветвей",
		Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
	})

	metricReportsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cscall",
		Name:      "reports_suppressed_total",
		Help:      "Отчеты, подавленные одноразовыми флагами",
	})
)

// observeOperation фиксирует исход операции в метриках
func observeOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		var ce *CallError
		if AsCallError(err, &ce) {
			result = ce.Code.String()
		}
	}
	metricOperations.WithLabelValues(op, result).Inc()
}

// updateConnectionsGauge публикует размер карты слота
func updateConnectionsGauge(slotID int32, n int) {
	metricActiveConnections.WithLabelValues(strconv.Itoa(int(slotID))).Set(float64(n))
}
