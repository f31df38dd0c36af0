package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsTotal tracks gateway events processed by type.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_events_total",
			Help: "Gateway events processed by type",
		},
		[]string{"type"},
	)

	// PublishesTotal tracks leaderboard publish attempts by outcome.
	PublishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_publishes_total",
			Help: "Leaderboard publish attempts by outcome (edited/sent/failed)",
		},
		[]string{"outcome"},
	)

	// FinalizesTotal tracks cycle finalizations by kind.
	FinalizesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leaderboard_finalizes_total",
			Help: "Cycle finalizations by leaderboard kind",
		},
		[]string{"kind"},
	)

	// CommandsTotal tracks slash command invocations by name.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Slash command invocations by name",
		},
		[]string{"command"},
	)

	// StoreErrorsTotal tracks failed durable-store operations.
	StoreErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total failed database operations",
		},
	)
)
