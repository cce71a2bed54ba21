package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "matcher",
		Name:      "events_total",
		Help:      "Events run through the matcher, by which trigger set answered them",
	}, []string{"result"})

	regexTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "matcher",
		Name:      "regex_timeouts_total",
		Help:      "Regex trigger evaluations abandoned because they ran past the match timeout",
	})

	regexCompileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "matcher",
		Name:      "regex_compile_errors_total",
		Help:      "Distinct regex trigger patterns which failed to compile",
	})
)
