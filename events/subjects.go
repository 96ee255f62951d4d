package events

import "fmt"

// StreamName is the JetStream stream that holds every published domain event
const StreamName = "wingman_events"

// SubjectPrefix is prepended to every NATS subject the service publishes to
const SubjectPrefix = "wingman"

var subjects = map[EventType]string{
	EventTypeUserCreated:         "users.created",
	EventTypeFriendRequested:     "friends.requested",
	EventTypeFriendshipAccepted:  "friends.accepted",
	EventTypeMatchProposed:       "matches.proposed",
	EventTypeDateOutcomeReported: "matches.outcome_reported",
	EventTypeMarketCreated:       "markets.created",
	EventTypeMarketClosed:        "markets.closed",
	EventTypeMarketResolved:      "markets.resolved",
	EventTypeBetPlaced:           "markets.bet_placed",
	EventTypeVouchChanged:        "vouches.changed",
	EventTypeVouchBudgetAdjusted: "vouches.budget_adjusted",
}

// SubjectFor maps an event type to its NATS subject
func SubjectFor(eventType EventType) string {
	if subject, ok := subjects[eventType]; ok {
		return SubjectPrefix + "." + subject
	}
	return fmt.Sprintf("%s.unknown.%s", SubjectPrefix, eventType)
}

// StreamSubjects returns the subject filter for the events stream
func StreamSubjects() []string {
	return []string{SubjectPrefix + ".>"}
}
