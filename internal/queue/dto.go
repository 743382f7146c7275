package queue

import (
	"time"

	"github.com/qatalysthq/qatalyst-backend/pkg/enums"
)

// JoinInput carries a join request after transport-level decoding.
type JoinInput struct {
	Phone       string
	Name        string
	ServiceType string
	Channel     enums.JoinChannel
	KioskID     *string
}

// JoinResult is the full join payload returned to every channel.
type JoinResult struct {
	TicketNumber    string `json:"ticket_number"`
	Position        int    `json:"position"`
	WaitTimeMinutes int    `json:"wait_time_minutes"`
	PeopleAhead     int    `json:"people_ahead"`
	AlreadyInQueue  bool   `json:"already_in_queue"`
	ServiceType     string `json:"service_type"`
}

// TicketView is a waiting ticket annotated with its live position.
type TicketView struct {
	ID                int64                `json:"id"`
	TicketNumber      string               `json:"ticket_number"`
	Phone             string               `json:"phone"`
	CustomerName      string               `json:"customer_name"`
	ServiceType       string               `json:"service_type"`
	Status            enums.TicketStatus   `json:"status"`
	Priority          enums.TicketPriority `json:"priority"`
	CreatedAt         time.Time            `json:"created_at"`
	Position          int                  `json:"position"`
	EstimatedWaitTime int                  `json:"estimated_wait_time"`
}

// StatusResult is the live status payload for a ticket lookup.
type StatusResult struct {
	TicketNumber    string `json:"ticket_number"`
	Position        int    `json:"position"`
	NowServing      string `json:"now_serving"`
	WaitTimeMinutes int    `json:"wait_time_minutes"`
}

// PhonePosition reports the queue rank of a phone's earliest active ticket.
type PhonePosition struct {
	Phone    string `json:"phone"`
	Position int    `json:"position"`
}

// CalledTicket describes the ticket a call-next dispatched.
type CalledTicket struct {
	TicketNumber string `json:"ticket_number"`
	Phone        string `json:"phone"`
	ServiceType  string `json:"service_type"`
	Position     int    `json:"position"`
}

// CallNextResult reports both lifecycle transitions of a call-next.
type CallNextResult struct {
	CurrentTicket *string       `json:"current_ticket"`
	NextTicket    *CalledTicket `json:"next_ticket"`
	Message       string        `json:"message"`
}

// TicketCreatedEvent is the outbox payload emitted when a join commits.
type TicketCreatedEvent struct {
	TicketNumber    string `json:"ticket_number"`
	Phone           string `json:"phone"`
	CustomerName    string `json:"customer_name"`
	ServiceType     string `json:"service_type"`
	Position        int    `json:"position"`
	WaitTimeMinutes int    `json:"wait_time_minutes"`
}

// TicketCalledEvent is the outbox payload emitted when call-next commits.
type TicketCalledEvent struct {
	TicketNumber string `json:"ticket_number"`
	Phone        string `json:"phone"`
	ServiceType  string `json:"service_type"`
	AgentID      string `json:"agent_id"`
}
