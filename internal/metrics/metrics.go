// Package metrics holds the prometheus collectors the bot reports on
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tawnybot"

type Metrics struct {
	MessagesRecorded       prometheus.Counter
	LevelChanges           *prometheus.CounterVec
	RoleOperations         *prometheus.CounterVec
	ReconciliationsAborted prometheus.Counter
	Commands               *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		MessagesRecorded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_recorded_total",
			Help:      "Messages counted towards a user's level.",
		}),
		LevelChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_changes_total",
			Help:      "Committed level changes by direction.",
		}, []string{"direction"}),
		RoleOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "role_operations_total",
			Help:      "Role grants and revokes sent to discord.",
		}, []string{"op", "result"}),
		ReconciliationsAborted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_aborted_total",
			Help:      "Messages whose role reconciliation was skipped because the guild config could not be loaded.",
		}),
		Commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Operator commands handled.",
		}, []string{"command", "result"}),
	}
}
