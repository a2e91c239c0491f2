package policy

import "github.com/prometheus/client_golang/prometheus"

var decisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "policy_decisions_total", Help: "Row-level policy decisions"},
	[]string{"policy", "decision"},
)

func init() { prometheus.MustRegister(decisions) }

func observe(name string, allowed bool) {
	d := "deny"
	if allowed {
		d = "allow"
	}
	decisions.WithLabelValues(name, d).Inc()
}
