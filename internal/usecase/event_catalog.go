package usecase

import (
	"encoding/json"

	"github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/model"
)

// eventDependencies lists, per event type, the event types that must be
// processed first for the same resource.
var eventDependencies = map[string][]string{
	model.EventPaymentSucceeded: {model.EventPaymentAuthorized},
	model.EventChargeRefunded:   {model.EventPaymentSucceeded},
	model.EventPaymentCanceled:  {model.EventPaymentAuthorized},
}

var eventPriorities = map[string]int{
	model.EventDisputeCreated:    100,
	model.EventPayoutFailed:      90,
	model.EventChargeRefunded:    80,
	model.EventPayoutPaid:        70,
	model.EventPaymentCanceled:   60,
	model.EventPaymentSucceeded:  50,
	model.EventPaymentAuthorized: 50,
	model.EventPaymentFailed:     40,
	model.EventAccountUpdated:    20,
}

// EventPriority maps an event type to its job priority. Unknown types get 0.
func EventPriority(eventType string) int {
	return eventPriorities[eventType]
}

// EventDependencies returns the prerequisite types of eventType.
func EventDependencies(eventType string) []string {
	return eventDependencies[eventType]
}

// eventObject holds the data.object fields the pipeline reads.
type eventObject struct {
	ID             string            `json:"id"`
	Object         string            `json:"object"`
	PaymentIntent  string            `json:"payment_intent"`
	PayoutsEnabled bool              `json:"payouts_enabled"`
	FailureCode    string            `json:"failure_code"`
	FailureMessage string            `json:"failure_message"`
	Metadata       map[string]string `json:"metadata"`
}

func decodeEventObject(raw []byte) (*eventObject, error) {
	var obj eventObject
	if len(raw) == 0 {
		return &obj, nil
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	return &obj, nil
}

// resourceOf derives the resource an event refers to.
func resourceOf(eventType string, obj *eventObject) (resourceType, resourceID string) {
	switch eventType {
	case model.EventPaymentAuthorized, model.EventPaymentSucceeded,
		model.EventPaymentFailed, model.EventPaymentCanceled:
		return model.ResourcePaymentIntent, obj.ID
	case model.EventChargeRefunded, model.EventDisputeCreated:
		return model.ResourcePaymentIntent, obj.PaymentIntent
	case model.EventPayoutPaid, model.EventPayoutFailed:
		return model.ResourcePayout, obj.ID
	case model.EventAccountUpdated:
		return model.ResourceAccount, obj.ID
	default:
		return model.ResourceUnknown, obj.ID
	}
}
