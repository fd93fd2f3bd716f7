// Package audit keeps the operational trail of the attendance and custody
// core. Chain-of-custody is an audit feature by nature: every committed
// check-in/check-out and every handover, accepted or rejected, leaves an
// event here in addition to its domain record.
package audit

import (
	"time"

	id "watchpost/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance: weapon
	// handovers and their reconciliation outcomes. Long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers rejected operations worth alerting on:
	// duplicate check-ins, stale handovers, missing justifications.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity: committed check-ins and
	// check-outs, geolocation failures. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	GuardID   id.GuardID
	Action    string
	// Outcome is the domain result: confirmed, flagged, accepted, rejected.
	Outcome string
	// Reason carries the rejection cause or deficit justification summary.
	Reason string
	// WeaponID is set for custody events.
	WeaponID string
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string
	// Device is the parsed device description of the reporting client.
	Device string
	// ClientIP is the reporting client's address.
	ClientIP string
}

// AuditEvent names every action the core emits.
type AuditEvent string

const (
	EventCheckInCommitted  AuditEvent = "check_in_committed"
	EventCheckOutCommitted AuditEvent = "check_out_committed"
	EventCheckInRejected   AuditEvent = "check_in_rejected"
	EventCheckOutRejected  AuditEvent = "check_out_rejected"

	EventHandoverRecorded AuditEvent = "handover_recorded"
	EventHandoverRejected AuditEvent = "handover_rejected"

	EventLocationFixFailed AuditEvent = "location_fix_failed"
)

// eventCategories maps each audit event to its category and is the single
// source of truth for routing.
var eventCategories = map[AuditEvent]EventCategory{
	EventCheckInCommitted:  CategoryOperations,
	EventCheckOutCommitted: CategoryOperations,
	EventLocationFixFailed: CategoryOperations,

	EventCheckInRejected:  CategorySecurity,
	EventCheckOutRejected: CategorySecurity,
	EventHandoverRejected: CategorySecurity,

	EventHandoverRecorded: CategoryCompliance,
}

// Category resolves the event's category, defaulting to operations for
// unknown actions so nothing is silently dropped.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}
