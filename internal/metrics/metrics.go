package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_submissions_total",
			Help: "WCTP submissions by response code",
		},
		[]string{"code"}, // 200|300|401|402|403|411|604|606
	)

	DispatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_dispatches_total",
			Help: "Send tasks handed to the queue by carrier kind",
		},
		[]string{"carrier", "result"}, // twilio|thinq , queued|failed
	)

	SendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_carrier_sends_total",
			Help: "Carrier send API calls by carrier kind and result",
		},
		[]string{"carrier", "result"}, // sent|failed
	)

	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_reconciliations_total",
			Help: "Status reconciliations by outcome",
		},
		[]string{"outcome"}, // delivered|failed|in_flight|forced|skipped|conflict|error
	)

	TaskRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_task_retries_total",
			Help: "Tasks re-published for another attempt",
		},
		[]string{"topic"},
	)

	TasksAbandonedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_tasks_abandoned_total",
			Help: "Tasks dropped after exhausting their attempt budget",
		},
		[]string{"topic"},
	)

	SweepEnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wctpgw_sweep_enqueued_total",
			Help: "Status tasks enqueued by the reconciliation sweeper",
		},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wctpgw_audit_events_total",
			Help: "Audit events by persistence result",
		},
		[]string{"result"}, // written|failed
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		SubmissionsTotal,
		DispatchesTotal,
		SendsTotal,
		ReconciliationsTotal,
		TaskRetriesTotal,
		TasksAbandonedTotal,
		SweepEnqueuedTotal,
		AuditEventsTotal,
	)
}
