package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PersistenceMetrics records cart and wishlist save/load behaviour.
type PersistenceMetrics struct {
	saveDuration *prometheus.HistogramVec
	saves        *prometheus.CounterVec
	retries      *prometheus.CounterVec
	coalesced    *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
}

// NewPersistenceMetrics registers the persistence metrics on the provided registerer.
func NewPersistenceMetrics(reg prometheus.Registerer) *PersistenceMetrics {
	if reg == nil {
		return &PersistenceMetrics{}
	}
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storefront_save_duration_seconds",
		Help:    "Duration of line item collection saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"store"})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_saves_total",
		Help: "Line item collection saves by outcome.",
	}, []string{"store", "result"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_save_retries_total",
		Help: "Save attempts retried after a failure.",
	}, []string{"store"})
	coalesced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_saves_coalesced_total",
		Help: "Snapshots replaced by a newer snapshot before being written.",
	}, []string{"store"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_remote_fallbacks_total",
		Help: "Remote operations that fell back to local persistence.",
	}, []string{"store", "op"})
	reg.MustRegister(saveDuration, saves, retries, coalesced, fallbacks)
	return &PersistenceMetrics{
		saveDuration: saveDuration,
		saves:        saves,
		retries:      retries,
		coalesced:    coalesced,
		fallbacks:    fallbacks,
	}
}

// ObserveSave records one completed save.
func (p *PersistenceMetrics) ObserveSave(store string, duration time.Duration, err error) {
	if p == nil || p.saves == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.saveDuration.WithLabelValues(normalizeLabel(store)).Observe(duration.Seconds())
	p.saves.WithLabelValues(normalizeLabel(store), result).Inc()
}

func (p *PersistenceMetrics) IncRetry(store string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(normalizeLabel(store)).Inc()
}

func (p *PersistenceMetrics) IncCoalesced(store string) {
	if p == nil || p.coalesced == nil {
		return
	}
	p.coalesced.WithLabelValues(normalizeLabel(store)).Inc()
}

// IncFallback counts a remote load or save served by the local slot.
func (p *PersistenceMetrics) IncFallback(store, op string) {
	if p == nil || p.fallbacks == nil {
		return
	}
	p.fallbacks.WithLabelValues(normalizeLabel(store), normalizeLabel(op)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
