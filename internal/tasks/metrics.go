package tasks

import "github.com/prometheus/client_golang/prometheus"

var (
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskorbit_board_mutations_total",
			Help: "Board mutations applied, by operation",
		},
		[]string{"op"},
	)

	dragOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskorbit_drag_outcomes_total",
			Help: "Completed drag gestures, by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(mutationsTotal, dragOutcomesTotal)
}
