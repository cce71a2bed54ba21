package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	handlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hibiki_discord_handler_panics_total",
		Help: "Gateway event handlers that panicked, by event kind.",
	}, []string{"kind"})

	actionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hibiki_discord_action_errors_total",
		Help: "Failed discord API calls made while responding to a trigger, by action.",
	}, []string{"action"})

	commandRegistrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hibiki_discord_command_registrations_total",
		Help: "Application command registrations by scope and outcome.",
	}, []string{"scope", "outcome"})
)
