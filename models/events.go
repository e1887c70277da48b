package models

import "time"

// CheckoutLinkCreatedEvent is published to SNS after a successful checkout.
type CheckoutLinkCreatedEvent struct {
	EventType string    `json:"event_type"`
	SagaID    string    `json:"saga_id"`
	Owner     string    `json:"owner"`
	GranteeID string    `json:"grantee_id"`
	PlanID    string    `json:"plan_id"`
	GroupID   string    `json:"group_id"`
	CartID    string    `json:"cart_id"`
	Timestamp time.Time `json:"timestamp"`
}
