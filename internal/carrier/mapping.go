package carrier

import "github.com/jmehdipour/wctp-gateway/internal/model"

var deliveredStatuses = map[string]struct{}{
	"sent":      {},
	"DELIVRD":   {},
	"delivered": {},
}

var failedStatuses = map[string]struct{}{
	"REJECTD":     {},
	"EXPIRED":     {},
	"DELETED":     {},
	"UNKNOWN":     {},
	"failed":      {},
	"undelivered": {},
	"UNDELIV":     {},
}

// twilioOutcome folds a Twilio status. Anything not known to be delivered
// is a failure.
func twilioOutcome(status string) model.Outcome {
	if _, ok := deliveredStatuses[status]; ok {
		return model.OutcomeDelivered
	}
	return model.OutcomeFailed
}

// thinqOutcome folds a ThinQ send_status; ok is false for statuses that
// carry no verdict.
func thinqOutcome(status string) (model.Outcome, bool) {
	if _, ok := deliveredStatuses[status]; ok {
		return model.OutcomeDelivered, true
	}
	if _, ok := failedStatuses[status]; ok {
		return model.OutcomeFailed, true
	}
	return model.OutcomeInFlight, false
}
