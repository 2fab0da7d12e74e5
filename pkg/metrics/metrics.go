package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	civicdata = "civicdata"

	// Scheduler metrics
	tasksScheduledTotal = "tasks_scheduled_total"
	TaskStateCount      = "task_state_count"

	// Policy metrics
	policyDecisionsTotal     = "policy_decisions_total"
	rateLimitRejectionsTotal = "rate_limit_rejections_total"

	// Labels
	jobKindLabel   = "kind"
	taskStateLabel = "state"
	roleLabel      = "role"
	outcomeLabel   = "outcome"
)

var tasksScheduledTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: civicdata,
		Name:      tasksScheduledTotal,
		Help:      "number of scheduled collection tasks by jurisdiction kind",
	},
	[]string{jobKindLabel},
)

var taskStateCountMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: civicdata,
		Name:      TaskStateCount,
		Help:      "metrics to record the number of tasks in each state",
	},
	[]string{taskStateLabel},
)

var policyDecisionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: civicdata,
		Name:      policyDecisionsTotal,
		Help:      "number of policy decisions by role and outcome",
	},
	[]string{roleLabel, outcomeLabel},
)

var rateLimitRejectionsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: civicdata,
		Name:      rateLimitRejectionsTotal,
		Help:      "number of requests rejected by the local rate limiter",
	},
	[]string{roleLabel},
)

func IncreaseTasksScheduledTotalMetric(kind string) {
	tasksScheduledTotalMetric.With(prometheus.Labels{jobKindLabel: kind}).Inc()
}

func UpdateTaskStateCountMetric(state string, count int) {
	taskStateCountMetric.With(prometheus.Labels{taskStateLabel: state}).Set(float64(count))
}

func IncreasePolicyDecisionsTotalMetric(role string, outcome string) {
	policyDecisionsTotalMetric.With(prometheus.Labels{roleLabel: role, outcomeLabel: outcome}).Inc()
}

func IncreaseRateLimitRejectionsTotalMetric(role string) {
	rateLimitRejectionsTotalMetric.With(prometheus.Labels{roleLabel: role}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(tasksScheduledTotalMetric)
	prometheus.MustRegister(taskStateCountMetric)
	prometheus.MustRegister(policyDecisionsTotalMetric)
	prometheus.MustRegister(rateLimitRejectionsTotalMetric)
}
