// Пакет metrics: Prometheus-счетчики процесса загрузки и модерации.
//
// Все методы безопасны для nil-получателя: компоненты без метрик
// (например, в тестах) просто ничего не считают.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics: набор счетчиков сервиса.
type Metrics struct {
	registry *prometheus.Registry

	keysIssued   prometheus.Counter
	keysRejected *prometheus.CounterVec
	uploads      *prometheus.CounterVec
	reviews      *prometheus.CounterVec
	comments     prometheus.Counter
	edits        *prometheus.CounterVec
}

// New создает собственный реестр и регистрирует в нем счетчики.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		keysIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picwall_keys_issued_total",
			Help: "Количество выданных ключей загрузки",
		}),
		keysRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picwall_keys_rejected_total",
			Help: "Количество отказов при выдаче или проверке ключа",
		}, []string{"reason"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picwall_uploads_total",
			Help: "Количество попыток загрузки по результату",
		}, []string{"result"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picwall_reviews_total",
			Help: "Количество решений модерации по статусу",
		}, []string{"status"}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "picwall_comments_total",
			Help: "Количество созданных комментариев",
		}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "picwall_edits_total",
			Help: "Количество попыток правки по результату",
		}, []string{"result"}),
	}
	reg.MustRegister(m.keysIssued, m.keysRejected, m.uploads, m.reviews, m.comments, m.edits)
	return m
}

// Handler возвращает HTTP-обработчик /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry возвращает реестр (для тестов и дополнительных коллекторов).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) KeyIssued() {
	if m == nil {
		return
	}
	m.keysIssued.Inc()
}

func (m *Metrics) KeyRejected(reason string) {
	if m == nil {
		return
	}
	m.keysRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Upload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
}

func (m *Metrics) Review(status string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(status).Inc()
}

func (m *Metrics) Comment() {
	if m == nil {
		return
	}
	m.comments.Inc()
}

func (m *Metrics) Edit(result string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(result).Inc()
}
