package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RepricingTotal counts repricing passes by outcome.
	RepricingTotal *prometheus.CounterVec
	// RepricingDuration records repricing pass latency in milliseconds.
	RepricingDuration prometheus.Histogram
	// PromotionAppliedTotal counts promotion discounts produced, by strategy kind.
	PromotionAppliedTotal *prometheus.CounterVec
	// PromotionEvalFailures counts promotions skipped due to evaluation errors.
	PromotionEvalFailures prometheus.Counter
	// OrdersClosedTotal counts closed orders by payment method.
	OrdersClosedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RepricingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repricing_passes_total",
			Help:      "Count of order repricing passes by outcome.",
		}, []string{"result"})
		RepricingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repricing_duration_ms",
			Help:      "Latency of repricing passes in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		})
		PromotionAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_applied_total",
			Help:      "Count of automatic promotion discounts produced, by strategy kind.",
		}, []string{"strategy"})
		PromotionEvalFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promotion_eval_failures_total",
			Help:      "Promotions that errored during evaluation and contributed zero.",
		})
		OrdersClosedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_closed_total",
			Help:      "Count of closed orders by payment method.",
		}, []string{"payment"})

		mustRegisterCollector(reg, RepricingTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RepricingTotal = v
			}
		})
		mustRegisterCollector(reg, RepricingDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				RepricingDuration = v
			}
		})
		mustRegisterCollector(reg, PromotionAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromotionAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, PromotionEvalFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PromotionEvalFailures = v
			}
		})
		mustRegisterCollector(reg, OrdersClosedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrdersClosedTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
