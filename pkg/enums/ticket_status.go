package enums

import "fmt"

// TicketStatus is the authoritative ticket lifecycle enum. The operator
// dashboard models additional states (called, no_show) that the engine never
// persists; they are treated as future extensions.
type TicketStatus string

const (
	TicketStatusWaiting    TicketStatus = "waiting"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusWaiting,
	TicketStatusInProgress,
	TicketStatusCompleted,
}

// IsValid reports whether the value matches the canonical status enum.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Active reports whether a ticket in this status still occupies its queue slot.
func (s TicketStatus) Active() bool {
	return s == TicketStatusWaiting || s == TicketStatusInProgress
}

// ParseTicketStatus converts raw input into TicketStatus.
func ParseTicketStatus(value string) (TicketStatus, error) {
	for _, candidate := range validTicketStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ticket status %q", value)
}
