package notify

import "fmt"

// TicketCreatedPayload mirrors the ticket_created outbox payload.
type TicketCreatedPayload struct {
	TicketNumber    string `json:"ticket_number"`
	Phone           string `json:"phone"`
	CustomerName    string `json:"customer_name"`
	ServiceType     string `json:"service_type"`
	Position        int    `json:"position"`
	WaitTimeMinutes int    `json:"wait_time_minutes"`
}

// TicketCalledPayload mirrors the ticket_called outbox payload.
type TicketCalledPayload struct {
	TicketNumber string `json:"ticket_number"`
	Phone        string `json:"phone"`
	ServiceType  string `json:"service_type"`
	AgentID      string `json:"agent_id"`
}

// RenderTicketCreated produces the join confirmation SMS.
func RenderTicketCreated(p TicketCreatedPayload) string {
	return fmt.Sprintf("✅ Queue Ticket Confirmed\n\nTicket: %s\nService: %s\nPosition: %d\nWait Time: ~%d min",
		p.TicketNumber, p.ServiceType, p.Position, p.WaitTimeMinutes)
}

// RenderTicketCalled produces the now-serving SMS.
func RenderTicketCalled(p TicketCalledPayload) string {
	return fmt.Sprintf("🎫 It's your turn!\n\nTicket: %s\nService: %s\nPlease proceed to the service point.",
		p.TicketNumber, p.ServiceType)
}
