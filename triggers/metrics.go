package triggers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "triggers",
		Name:      "mutations_total",
		Help:      "Trigger mutations applied by this shard",
	}, []string{"op", "scope"})

	reloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "triggers",
		Name:      "reloads_total",
		Help:      "Full trigger reloads, by outcome",
	}, []string{"outcome"})

	busEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hibiki",
		Subsystem: "triggers",
		Name:      "bus_events_total",
		Help:      "Bus events received from other shards",
	}, []string{"topic"})

	cachedTriggers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "hibiki",
		Subsystem: "triggers",
		Name:      "cached",
		Help:      "Triggers held in the caches after the last full reload",
	})
)

func scopeLabel(guildID string) string {
	if guildID == "" {
		return "global"
	}
	return "guild"
}
