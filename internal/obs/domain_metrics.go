package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutSessionTotal counts gateway session creation outcomes.
	CheckoutSessionTotal *prometheus.CounterVec
	// PaymentConfirmTotal counts payment confirmation outcomes.
	PaymentConfirmTotal *prometheus.CounterVec
	// CouponIssuedTotal counts reward coupons minted.
	CouponIssuedTotal prometheus.Counter
	// ChatRequestTotal counts assistant chat requests by outcome.
	ChatRequestTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific
// Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_session_total",
			Help:      "Count of gateway checkout session creation outcomes.",
		}, []string{"provider", "result"})
		PaymentConfirmTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirm_total",
			Help:      "Count of payment confirmation outcomes.",
		}, []string{"provider", "result"})
		CouponIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_issued_total",
			Help:      "Number of reward coupons minted.",
		})
		ChatRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_request_total",
			Help:      "Count of assistant chat requests by outcome.",
		}, []string{"result"})

		CheckoutSessionTotal = registerOrReuse(reg, CheckoutSessionTotal).(*prometheus.CounterVec)
		PaymentConfirmTotal = registerOrReuse(reg, PaymentConfirmTotal).(*prometheus.CounterVec)
		CouponIssuedTotal = registerOrReuse(reg, CouponIssuedTotal).(prometheus.Counter)
		ChatRequestTotal = registerOrReuse(reg, ChatRequestTotal).(*prometheus.CounterVec)
	})
}
