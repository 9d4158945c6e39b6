package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crewcall_sessions_active",
		Help: "Number of sessions currently in the registry.",
	})
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewcall_games_started_total",
		Help: "Games moved from lobby to playing.",
	})
	GamesEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewcall_games_ended_total",
		Help: "Finished games by winner.",
	}, []string{"winner"})
	MeetingsCalled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewcall_meetings_called_total",
		Help: "Meetings opened by kind.",
	}, []string{"kind"})
	SabotagesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewcall_sabotages_started_total",
		Help: "Sabotages triggered by type.",
	}, []string{"type"})
)
